package spool

import (
	"fmt"
	"io"
)

// Buffer is the in-memory staging area of a Sink. The two implementations
// (slice-backed and mmap-backed) are interchangeable: the sink depends on
// nothing beyond this contract.
type Buffer interface {
	// Cap returns the fixed capacity in bytes.
	Cap() int

	// Len returns the number of buffered bytes.
	Len() int

	// Fits reports whether n more bytes fit without overflowing.
	Fits(n int) bool

	// Write appends p. The caller must have checked Fits(len(p)).
	Write(p []byte)

	// DrainTo writes the buffered bytes to w and empties the buffer.
	DrainTo(w io.Writer) error

	// PeekTo writes the buffered bytes to w without consuming them. The
	// write cursor is left exactly where it was, so interleaved peek and
	// write sequences are indistinguishable from never having peeked.
	PeekTo(w io.Writer) error

	// Release frees the underlying storage. The buffer must not be used
	// afterwards. Release is idempotent.
	Release() error
}

// BufferKind selects a Buffer implementation.
type BufferKind string

const (
	BufferSlice BufferKind = "slice"
	BufferMmap  BufferKind = "mmap"
)

// NewBuffer creates a buffer of the given kind. An empty kind defaults to
// the slice-backed implementation.
func NewBuffer(kind BufferKind, capacity int) (Buffer, error) {
	switch kind {
	case BufferSlice, "":
		return NewSliceBuffer(capacity), nil
	case BufferMmap:
		return NewMmapBuffer(capacity)
	default:
		return nil, fmt.Errorf("unsupported buffer kind: %s", kind)
	}
}

// SliceBuffer is a Buffer backed by a plain byte slice on the Go heap.
type SliceBuffer struct {
	buf []byte
	n   int
}

// NewSliceBuffer allocates a slice-backed buffer of exactly capacity bytes.
func NewSliceBuffer(capacity int) *SliceBuffer {
	return &SliceBuffer{buf: make([]byte, capacity)}
}

func (b *SliceBuffer) Cap() int        { return len(b.buf) }
func (b *SliceBuffer) Len() int        { return b.n }
func (b *SliceBuffer) Fits(n int) bool { return b.n+n <= len(b.buf) }

func (b *SliceBuffer) Write(p []byte) {
	b.n += copy(b.buf[b.n:], p)
}

func (b *SliceBuffer) DrainTo(w io.Writer) error {
	if b.n == 0 {
		return nil
	}
	if _, err := w.Write(b.buf[:b.n]); err != nil {
		return err
	}
	b.n = 0
	return nil
}

func (b *SliceBuffer) PeekTo(w io.Writer) error {
	if b.n == 0 {
		return nil
	}
	_, err := w.Write(b.buf[:b.n])
	return err
}

func (b *SliceBuffer) Release() error {
	b.buf = nil
	b.n = 0
	return nil
}
