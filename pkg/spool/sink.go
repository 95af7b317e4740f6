package spool

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// sinkState tracks where writes currently go.
type sinkState int

const (
	// stateBuffering: writes land in the in-memory buffer.
	stateBuffering sinkState = iota
	// stateSpilled: the buffer overflowed at least once; writes go to the
	// backing resource.
	stateSpilled
	// stateForwarding: Recall has run; writes go straight to its target.
	stateForwarding
)

// Sink is a buffered, spill-to-disk byte sink.
//
// Writes accumulate in a fixed-capacity buffer of threshold bytes. The
// first write that does not fit drains the buffer to a backing resource
// obtained from the factory; from then on writes bypass the buffer.
// Recall replays everything in write order into a caller-supplied target
// and switches the sink to forwarding mode, in which further writes go
// synchronously to that same target.
//
// A Sink is not safe for concurrent use.
type Sink struct {
	buffer  Buffer
	factory Factory
	logger  *zap.Logger

	state    sinkState
	resource Resource
	target   io.Writer
	size     int64
	spilled  bool
	closed   bool
}

// Option configures a Sink.
type Option func(*sinkConfig)

type sinkConfig struct {
	kind   BufferKind
	logger *zap.Logger
}

// WithBufferKind selects the in-memory buffer implementation. The default
// is the slice-backed buffer.
func WithBufferKind(kind BufferKind) Option {
	return func(cfg *sinkConfig) {
		cfg.kind = kind
	}
}

// WithLogger sets the logger used for cleanup diagnostics. The default
// logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *sinkConfig) {
		cfg.logger = logger
	}
}

// NewSink creates a sink that buffers up to threshold bytes in memory and
// spills to a resource created by factory beyond that.
func NewSink(threshold int, factory Factory, opts ...Option) (*Sink, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %d", threshold)
	}
	if factory == nil {
		return nil, errors.New("resource factory must not be nil")
	}

	cfg := sinkConfig{kind: BufferSlice, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	buffer, err := NewBuffer(cfg.kind, threshold)
	if err != nil {
		return nil, err
	}

	return &Sink{buffer: buffer, factory: factory, logger: cfg.logger}, nil
}

// Write appends p to the sink. Writing an empty slice is a no-op. Writing
// to a closed sink that is not forwarding returns ErrClosed.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed && s.state != stateForwarding {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	switch s.state {
	case stateForwarding:
		if _, err := s.target.Write(p); err != nil {
			return 0, err
		}

	case stateSpilled:
		if s.resource == nil {
			// Cleanup already ran; the resource is never recreated.
			return 0, ErrClosed
		}
		// A residual tail may still sit in the buffer from the write
		// that triggered the spill; it must reach the resource first.
		if err := s.buffer.DrainTo(s.resource); err != nil {
			return 0, err
		}
		if _, err := s.resource.Write(p); err != nil {
			return 0, err
		}

	default:
		if s.buffer.Fits(len(p)) {
			s.buffer.Write(p)
			break
		}
		if err := s.spill(p); err != nil {
			return 0, err
		}
	}

	s.size += int64(len(p))
	return len(p), nil
}

// spill moves the sink to the spilled state: buffered bytes are drained to
// the backing resource, which is created on first use. A chunk larger than
// the whole buffer goes straight to the resource; anything smaller is
// buffered after the drain.
func (s *Sink) spill(p []byte) error {
	if s.resource == nil {
		resource, err := s.factory.Create()
		if err != nil {
			return fmt.Errorf("failed to create backing resource: %w", err)
		}
		s.resource = resource
	}

	if err := s.buffer.DrainTo(s.resource); err != nil {
		return err
	}

	if len(p) > s.buffer.Cap() {
		if _, err := s.resource.Write(p); err != nil {
			return err
		}
	} else {
		s.buffer.Write(p)
	}

	s.spilled = true
	s.state = stateSpilled
	return nil
}

// Recall replays every byte written so far into target and switches the
// sink to forwarding mode: subsequent writes go synchronously to target
// with no further buffering, spilling or resource use.
//
// While the sink is still buffering, the buffer contents are copied out
// without being consumed, so recalling early does not disturb later
// writes. Recalling a sink that is already forwarding is a no-op.
func (s *Sink) Recall(target io.Writer) error {
	if s.state == stateForwarding {
		return nil
	}
	if s.closed {
		return ErrClosed
	}
	if target == nil {
		return errors.New("recall target must not be nil")
	}

	switch s.state {
	case stateBuffering:
		if err := s.buffer.PeekTo(target); err != nil {
			return err
		}

	case stateSpilled:
		if s.resource == nil {
			return ErrClosed
		}
		if err := s.buffer.DrainTo(s.resource); err != nil {
			return err
		}
		reader, err := s.resource.Open()
		if err != nil {
			return err
		}
		if _, err := io.Copy(target, reader); err != nil {
			_ = reader.Close()
			return fmt.Errorf("failed to replay %s: %w", s.resource.Name(), err)
		}
		if err := reader.Close(); err != nil {
			return fmt.Errorf("failed to close %s after replay: %w", s.resource.Name(), err)
		}
	}

	s.state = stateForwarding
	s.target = target
	return nil
}

// HasSpilled reports whether any bytes have reached the backing resource.
func (s *Sink) HasSpilled() bool { return s.spilled }

// Size returns the total number of bytes accepted so far.
func (s *Sink) Size() int64 { return s.size }

// Close flushes any still-buffered bytes to the backing resource when one
// exists and releases the write handle. The resource itself survives
// until Cleanup. Close is idempotent, and a forwarding sink keeps
// accepting writes after it.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.resource != nil && s.state == stateSpilled {
		if err := s.buffer.DrainTo(s.resource); err != nil {
			errs = append(errs, err)
		}
		if err := s.resource.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.buffer.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Cleanup deletes the backing resource if one was ever created. It never
// fails: cleanup routinely runs on error-recovery paths where a second
// error would mask the first, so failures are only logged.
func (s *Sink) Cleanup() {
	if s.resource == nil {
		return
	}
	resource := s.resource
	s.resource = nil
	if err := resource.Remove(); err != nil {
		s.logger.Warn("failed to remove backing resource",
			zap.String("resource", resource.Name()),
			zap.Error(err),
		)
	}
}
