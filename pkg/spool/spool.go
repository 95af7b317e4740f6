// Package spool implements buffered, spill-to-disk byte sinks.
//
// A Sink accepts an unbounded stream of bytes. Writes stay in a bounded
// in-memory buffer while they fit, spill to a lazily-created backing
// resource once they do not, and are later replayed in order into any
// io.Writer via Recall. A CompressedSink decorates a Sink so that spilled
// data is stored compressed without the compression ever being observable
// at the sink boundary.
package spool

import "io"

// SwapSink is the contract shared by Sink and CompressedSink.
//
// Implementations are not safe for concurrent use; callers that share a
// sink across goroutines must synchronize externally.
type SwapSink interface {
	io.Writer

	// Recall replays every byte ever written into target. After the
	// first Recall the sink is in forwarding mode: subsequent writes go
	// straight to the same target.
	Recall(target io.Writer) error

	// HasSpilled reports whether any bytes have reached the backing
	// resource.
	HasSpilled() bool

	// Size returns the total number of bytes accepted so far.
	Size() int64

	// Close flushes still-buffered bytes to the backing resource when one
	// exists and releases the write handle. It does not delete the
	// resource.
	Close() error

	// Cleanup deletes the backing resource if one was ever created. It is
	// best-effort and safe to call any number of times.
	Cleanup()
}
