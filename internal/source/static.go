package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
)

const (
	InlineSourceKind = "inline"
	FileSourceKind   = "file"
)

// InlineSource serves a literal value from the job document.
type InlineSource struct {
	value string
}

func NewInlineSource(value string) *InlineSource {
	return &InlineSource{value: value}
}

func (s *InlineSource) Name() string { return "inline" }

func (s *InlineSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.value)), nil
}

// FileSource streams a file relative to the process working directory.
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource creates a file source anchored at the working directory.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	rootDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewFileSourceWithFs(afero.NewBasePathFs(afero.NewOsFs(), rootDir), path), nil
}

// NewFileSourceWithFs creates a file source on an explicit filesystem;
// used by tests.
func NewFileSourceWithFs(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

func (s *FileSource) Name() string {
	return fmt.Sprintf("file(%s)", s.path)
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := s.fs.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file %s: %w", s.path, err)
	}
	return file, nil
}
