//go:build unix

package spool

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// MmapBuffer is a Buffer backed by a private anonymous mapping outside the
// Go heap. The region is page-aligned, so spill transfers and peeks write
// straight out of the mapped memory without an intermediate copy.
type MmapBuffer struct {
	mem []byte
	n   int
}

// NewMmapBuffer maps an anonymous region of capacity bytes.
func NewMmapBuffer(capacity int) (Buffer, error) {
	mem, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("failed to map %d byte buffer: %w", capacity, err)
	}
	return &MmapBuffer{mem: mem}, nil
}

func (b *MmapBuffer) Cap() int        { return len(b.mem) }
func (b *MmapBuffer) Len() int        { return b.n }
func (b *MmapBuffer) Fits(n int) bool { return b.n+n <= len(b.mem) }

func (b *MmapBuffer) Write(p []byte) {
	b.n += copy(b.mem[b.n:], p)
}

func (b *MmapBuffer) DrainTo(w io.Writer) error {
	if b.n == 0 {
		return nil
	}
	if _, err := w.Write(b.mem[:b.n]); err != nil {
		return err
	}
	b.n = 0
	return nil
}

// PeekTo writes the mapped contents without moving the write cursor. The
// cursor is restored even if w consumed only part of the region before
// failing.
func (b *MmapBuffer) PeekTo(w io.Writer) error {
	if b.n == 0 {
		return nil
	}
	_, err := w.Write(b.mem[:b.n])
	return err
}

func (b *MmapBuffer) Release() error {
	if b.mem == nil {
		return nil
	}
	mem := b.mem
	b.mem = nil
	b.n = 0
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("failed to unmap buffer: %w", err)
	}
	return nil
}
