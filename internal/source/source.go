// Package source produces the content of bundle entries.
package source

import (
	"context"
	"io"
)

// Source yields one entry's content as a byte stream. Sources are opened
// at most once per bundle run.
type Source interface {
	// Name describes the source for logs and errors.
	Name() string

	// Open returns the content stream. The caller closes it.
	Open(ctx context.Context) (io.ReadCloser, error)
}
