package dest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FilesystemDestination writes bundles below a base directory.
type FilesystemDestination struct {
	fs afero.Fs
}

func NewFilesystemDestination(fs afero.Fs) *FilesystemDestination {
	return &FilesystemDestination{fs: fs}
}

// NewFilesystemDestinationFromPath anchors a destination at path on the
// host filesystem, creating the directory if needed.
func NewFilesystemDestinationFromPath(path string) (*FilesystemDestination, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(cleanPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cleanPath, err)
	}
	return NewFilesystemDestination(afero.NewBasePathFs(afero.NewOsFs(), cleanPath)), nil
}

func (d *FilesystemDestination) Name() string {
	return fmt.Sprintf("filesystem(%s)", d.fs.Name())
}

func (d *FilesystemDestination) Kind() string { return "filesystem" }

func (d *FilesystemDestination) Write(ctx context.Context, path string, data io.Reader) (err error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := d.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bundle file: %w", err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	if _, err = io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write bundle file: %w", err)
	}
	return nil
}

func (d *FilesystemDestination) Close(ctx context.Context) error {
	return nil
}
