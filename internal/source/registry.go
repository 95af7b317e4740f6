package source

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Factory builds a Source from its job-document spec.
type Factory func(logger *zap.Logger, spec any) (Source, error)

// TypedFactory is a strongly-typed source factory. S is the concrete spec
// type (e.g. *v1.ExecSource).
type TypedFactory[S any] func(logger *zap.Logger, spec S) (Source, error)

// NewFactory wraps a typed factory into a generic Factory. It centralizes
// the cast from any → S and gives a clear error on mismatch.
func NewFactory[S any](kind string, f TypedFactory[S]) Factory {
	return func(logger *zap.Logger, spec any) (Source, error) {
		typed, ok := spec.(S)
		if !ok {
			return nil, fmt.Errorf("invalid source spec for kind %q: %T", kind, spec)
		}
		return f(logger, typed)
	}
}

// UnsupportedKindError is returned when a source kind is not registered.
type UnsupportedKindError struct {
	Kind      string
	Available []string
}

func (e *UnsupportedKindError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unsupported source kind %q: no sources registered", e.Kind)
	}
	return fmt.Sprintf("unsupported source kind %q (available: %v)", e.Kind, e.Available)
}

// Registry maps source kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Create builds a source of the given kind from spec.
func (r *Registry) Create(logger *zap.Logger, kind string, spec any) (Source, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	available := r.available()
	r.mu.RUnlock()

	if !ok {
		return nil, &UnsupportedKindError{Kind: kind, Available: available}
	}
	return factory(logger, spec)
}

func (r *Registry) available() []string {
	kinds := lo.Keys(r.factories)
	slices.Sort(kinds)
	return kinds
}
