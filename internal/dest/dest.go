// Package dest delivers finished bundles to their final location.
package dest

import (
	"context"
	"io"
)

// Destination receives the finished bundle as a named byte stream. It
// never owns the stream's producer; it only consumes.
type Destination interface {
	// Name describes the destination for logs.
	Name() string

	// Kind returns the destination kind ("stream", "filesystem", "s3").
	Kind() string

	// Write stores the stream under the given path.
	Write(ctx context.Context, path string, data io.Reader) error

	// Close releases anything the destination holds open.
	Close(ctx context.Context) error
}
