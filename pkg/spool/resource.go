package spool

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

// Resource is the backing store a sink spills into. It is written
// sequentially, then reopened once for reading during recall. A resource
// belongs to exactly one sink and is never reused after removal.
type Resource interface {
	io.Writer

	// Open finalizes writing and returns a reader over everything written
	// so far.
	Open() (io.ReadCloser, error)

	// Close releases the write handle without deleting the resource.
	// Idempotent.
	Close() error

	// Remove deletes the resource. Removing a resource that is already
	// gone is not an error.
	Remove() error

	// Name identifies the resource in errors and logs.
	Name() string
}

// Factory lazily creates the backing resource for a sink. Sinks that never
// overflow their buffer never call it.
type Factory interface {
	Create() (Resource, error)
}

// spillTimestamp is a URL- and filesystem-safe UTC timestamp without colons.
const spillTimestamp = "20060102T150405Z"

// spillSeq distinguishes spill files created within one clock tick.
var spillSeq atomic.Uint64

// TempFileFactory creates spill files in a temp directory. Names combine
// the prefix, the process ID, a process-local sequence number and a UTC
// timestamp, so rapid sink creation cannot collide on coarse clock
// resolution alone.
type TempFileFactory struct {
	fs     afero.Fs
	dir    string
	prefix string
}

// NewTempFileFactory creates a factory placing spill files under dir on
// the given filesystem. An empty dir falls back to os.TempDir(), an empty
// prefix to "spool".
func NewTempFileFactory(fs afero.Fs, dir, prefix string) *TempFileFactory {
	if dir == "" {
		dir = os.TempDir()
	}
	if prefix == "" {
		prefix = "spool"
	}
	return &TempFileFactory{fs: fs, dir: dir, prefix: prefix}
}

func (f *TempFileFactory) Create() (Resource, error) {
	name := fmt.Sprintf("%s-%d-%d-%s.spill",
		f.prefix, os.Getpid(), spillSeq.Add(1), time.Now().UTC().Format(spillTimestamp))
	target := filepath.Join(f.dir, name)

	file, err := f.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("spill file %s: %w", target, ErrResourceExists)
		}
		return nil, fmt.Errorf("failed to create spill file %s: %w", target, err)
	}

	return &spillFile{fs: f.fs, path: target, w: file}, nil
}

// spillFile implements Resource over a single file on an afero filesystem.
type spillFile struct {
	fs   afero.Fs
	path string
	w    afero.File
}

func (r *spillFile) Name() string { return r.path }

func (r *spillFile) Write(p []byte) (int, error) {
	if r.w == nil {
		return 0, fmt.Errorf("spill file %s: %w", r.path, ErrClosed)
	}
	return r.w.Write(p)
}

func (r *spillFile) Open() (io.ReadCloser, error) {
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize spill file %s: %w", r.path, err)
	}
	file, err := r.fs.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("spill file %s is gone: %w", r.path, err)
	}
	return file, nil
}

func (r *spillFile) Close() error {
	if r.w == nil {
		return nil
	}
	w := r.w
	r.w = nil
	return w.Close()
}

func (r *spillFile) Remove() error {
	if err := r.Close(); err != nil {
		return err
	}
	if err := r.fs.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
