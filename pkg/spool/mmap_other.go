//go:build !unix

package spool

// NewMmapBuffer falls back to the slice-backed buffer on platforms without
// mmap support. The two kinds share one contract, so callers cannot tell
// the difference.
func NewMmapBuffer(capacity int) (Buffer, error) {
	return NewSliceBuffer(capacity), nil
}
