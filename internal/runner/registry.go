package runner

import (
	"go.uber.org/zap"

	v1 "github.com/spoolkit/spool/apis/v1"
	"github.com/spoolkit/spool/internal/source"
)

// BuildRegistry creates a source registry with every source kind
// registered.
func BuildRegistry() *source.Registry {
	registry := source.NewRegistry()

	registry.Register(source.InlineSourceKind,
		source.NewFactory(source.InlineSourceKind, newInlineSource))
	registry.Register(source.FileSourceKind,
		source.NewFactory(source.FileSourceKind, newFileSource))
	registry.Register(source.ExecSourceKind,
		source.NewFactory(source.ExecSourceKind, newExecSource))

	return registry
}

func newInlineSource(_ *zap.Logger, spec *v1.InlineSource) (source.Source, error) {
	return source.NewInlineSource(spec.Value), nil
}

func newFileSource(_ *zap.Logger, spec *v1.FileSource) (source.Source, error) {
	return source.NewFileSource(spec.Path)
}

func newExecSource(logger *zap.Logger, spec *v1.ExecSource) (source.Source, error) {
	return source.NewExecSource(logger, source.ExecConfig{
		Program:    spec.Program,
		WorkingDir: spec.WorkingDir,
		Timeout:    spec.Timeout,
		Env:        spec.Env,
	})
}
