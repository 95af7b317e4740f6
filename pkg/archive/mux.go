// Package archive multiplexes independently-written entries into one zip
// container on a non-seekable output.
//
// The container's main entry streams through eagerly as it is written.
// Every other entry accumulates in its own spill-to-disk sink and reaches
// the output only during Merge, in registration order. This lets callers
// interleave writes to many entries over a single pass of their data
// source, even though the zip format wants each entry written
// contiguously.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"

	"github.com/spoolkit/spool/pkg/spool"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateEntry is returned at construction when two entries
	// share a name.
	ErrDuplicateEntry = errors.New("duplicate entry name")

	// ErrUnknownEntry is returned by SetActive for names that were never
	// registered.
	ErrUnknownEntry = errors.New("unknown entry name")

	// ErrMerged is returned when writes or a second merge arrive after
	// Merge has run.
	ErrMerged = errors.New("entries already merged")
)

// EntrySpec declares one buffered side entry. The set of entries is fixed
// at construction.
type EntrySpec struct {
	// Name is the entry's path inside the container. Must be unique.
	Name string

	// Threshold is the in-memory buffer capacity in bytes before the
	// entry spills to disk.
	Threshold int

	// Codec compresses the entry's spill storage. Empty or CodecNone
	// stores it as written. The container output is unaffected either
	// way.
	Codec spool.CodecKind

	// Buffer selects the in-memory buffer implementation. Empty defaults
	// to the slice-backed buffer.
	Buffer spool.BufferKind
}

// Option configures a Multiplexer.
type Option func(*muxConfig)

type muxConfig struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for cleanup diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *muxConfig) {
		cfg.logger = logger
	}
}

// Multiplexer writes a multi-entry zip container to a single output.
//
// Exactly one entry is active at a time; Write goes to it. The main entry
// is never buffered: its bytes pass straight through to the output as
// they arrive. Side entries buffer independently and are appended by
// Merge. The multiplexer owns the side-entry sinks and their spill files
// but never the caller's output writer.
//
// A Multiplexer is not safe for concurrent use.
type Multiplexer struct {
	zw     *zip.Writer
	logger *zap.Logger

	mainName string
	main     io.Writer
	order    []string
	sinks    map[string]spool.SwapSink

	active     spool.SwapSink // nil while the main entry is active
	activeName string
	merged     bool
	closed     bool
}

// New creates a multiplexer writing a zip container to out. The main
// entry is created immediately and starts out active; side entries are
// validated and their sinks created up front, spilling through resources
// from factory.
//
// The caller keeps ownership of out: Close finalizes the container but
// never closes out.
func New(out io.Writer, mainName string, entries []EntrySpec, factory spool.Factory, opts ...Option) (*Multiplexer, error) {
	if out == nil {
		return nil, errors.New("output writer must not be nil")
	}
	if mainName == "" {
		return nil, errors.New("main entry name must not be empty")
	}

	cfg := muxConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	zw := zip.NewWriter(out)

	// The main entry streams through uncompressed; zip records its size
	// and checksum in the data descriptor after the payload, so the
	// output never needs to seek.
	main, err := zw.CreateHeader(&zip.FileHeader{
		Name:   mainName,
		Method: zip.Store,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create main entry %s: %w", mainName, err)
	}

	m := &Multiplexer{
		zw:       zw,
		logger:   cfg.logger,
		mainName: mainName,
		main:     main,
		sinks:    make(map[string]spool.SwapSink, len(entries)),
	}

	for _, entry := range entries {
		if entry.Name == "" {
			return nil, errors.New("entry name must not be empty")
		}
		if entry.Name == mainName {
			return nil, fmt.Errorf("%w: %s collides with the main entry", ErrDuplicateEntry, entry.Name)
		}
		if _, ok := m.sinks[entry.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, entry.Name)
		}

		sink, err := newEntrySink(entry, factory, cfg.logger)
		if err != nil {
			m.Cleanup()
			return nil, fmt.Errorf("failed to create sink for entry %s: %w", entry.Name, err)
		}
		m.sinks[entry.Name] = sink
		m.order = append(m.order, entry.Name)
	}

	return m, nil
}

func newEntrySink(entry EntrySpec, factory spool.Factory, logger *zap.Logger) (spool.SwapSink, error) {
	sink, err := spool.NewSink(entry.Threshold, factory,
		spool.WithBufferKind(entry.Buffer),
		spool.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if entry.Codec == "" || entry.Codec == spool.CodecNone {
		return sink, nil
	}
	return spool.NewCompressedSink(sink, entry.Codec)
}

// SetActive redirects subsequent writes to the named entry. The main
// entry's name selects the passthrough stream. Switching never flushes or
// merges anything; inactive entries simply keep what they have.
func (m *Multiplexer) SetActive(name string) error {
	if name == m.mainName {
		m.active = nil
		m.activeName = name
		return nil
	}
	sink, ok := m.sinks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, name)
	}
	m.active = sink
	m.activeName = name
	return nil
}

// Write appends p to the active entry.
func (m *Multiplexer) Write(p []byte) (int, error) {
	if m.closed {
		return 0, spool.ErrClosed
	}
	if m.merged {
		return 0, ErrMerged
	}
	if m.active == nil {
		return m.main.Write(p)
	}
	return m.active.Write(p)
}

// Merge appends every side entry to the container, in registration order,
// by recalling its sink into a freshly-created zip entry. The main entry
// was already written through the active-write path and is not touched.
// Merge runs exactly once.
func (m *Multiplexer) Merge() error {
	if m.closed {
		return spool.ErrClosed
	}
	if m.merged {
		return ErrMerged
	}
	m.merged = true

	for _, name := range m.order {
		w, err := m.zw.CreateHeader(&zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		})
		if err != nil {
			return fmt.Errorf("failed to create entry %s: %w", name, err)
		}
		if err := m.sinks[name].Recall(w); err != nil {
			return fmt.Errorf("failed to merge entry %s: %w", name, err)
		}
	}
	return nil
}

// Close finalizes the container (central directory included) and releases
// every side entry's resources. The caller's output writer stays open and
// untouched beyond the container bytes themselves. Idempotent.
func (m *Multiplexer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, name := range m.order {
		if err := m.sinks[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close entry %s: %w", name, err))
		}
	}
	if err := m.zw.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to finalize container: %w", err))
	}
	return errors.Join(errs...)
}

// Cleanup deletes every side entry's spill file. Best-effort and safe to
// call any number of times, typically deferred right after New.
func (m *Multiplexer) Cleanup() {
	for _, sink := range m.sinks {
		sink.Cleanup()
	}
}
