package dest

import (
	"context"
	"fmt"
	"io"
)

// StreamDestination copies bundles to a caller-supplied writer, typically
// stdout. The path is ignored; the writer is never closed.
type StreamDestination struct {
	w io.Writer
}

func NewStreamDestination(w io.Writer) *StreamDestination {
	return &StreamDestination{w: w}
}

func (d *StreamDestination) Name() string { return "stream" }
func (d *StreamDestination) Kind() string { return "stream" }

func (d *StreamDestination) Write(ctx context.Context, path string, data io.Reader) error {
	if _, err := io.Copy(d.w, data); err != nil {
		return fmt.Errorf("failed to stream bundle: %w", err)
	}
	return nil
}

func (d *StreamDestination) Close(ctx context.Context) error {
	return nil
}
