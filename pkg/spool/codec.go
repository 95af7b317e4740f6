package spool

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CodecKind selects the compression algorithm for a CompressedSink.
type CodecKind string

const (
	CodecGzip CodecKind = "gzip"
	CodecZstd CodecKind = "zstd"
	CodecNone CodecKind = "none"
)

// CodecOption configures a CompressedSink.
type CodecOption func(*codecConfig)

type codecConfig struct {
	level int
	set   bool
}

// WithCompressionLevel overrides the codec's default compression level.
// Gzip accepts 1 (fastest) through 9 (best); zstd levels are mapped from
// the same scale.
func WithCompressionLevel(level int) CodecOption {
	return func(cfg *codecConfig) {
		cfg.level = level
		cfg.set = true
	}
}

// CompressedSink decorates a Sink so that everything it stores, in memory
// or spilled, is compressed. Recall decompresses on the way out, so the
// bytes observed at the sink boundary are always exactly the bytes
// written: compression is an internal storage detail.
type CompressedSink struct {
	sink *Sink
	kind CodecKind

	gzipLevel int
	zstdLevel zstd.EncoderLevel

	comp     io.WriteCloser
	dec      *decompressWriter
	size     int64
	recalled bool
	closed   bool
}

// NewCompressedSink wraps sink with the given codec. CodecNone produces a
// plain passthrough decorator.
func NewCompressedSink(sink *Sink, kind CodecKind, opts ...CodecOption) (*CompressedSink, error) {
	if sink == nil {
		return nil, errors.New("wrapped sink must not be nil")
	}

	var cfg codecConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &CompressedSink{
		sink:      sink,
		kind:      kind,
		gzipLevel: gzip.DefaultCompression,
		zstdLevel: zstd.SpeedDefault,
	}
	if cfg.set {
		c.gzipLevel = cfg.level
		c.zstdLevel = zstd.EncoderLevelFromZstd(cfg.level)
	}

	switch kind {
	case CodecGzip:
		compressor, err := gzip.NewWriterLevel(sink, c.gzipLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip compressor: %w", err)
		}
		c.comp = compressor
	case CodecZstd:
		compressor, err := zstd.NewWriter(sink,
			zstd.WithEncoderLevel(c.zstdLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd compressor: %w", err)
		}
		c.comp = compressor
	case CodecNone:
		c.comp = nil
	default:
		return nil, fmt.Errorf("unsupported codec kind: %s", kind)
	}

	return c, nil
}

// Write feeds p through the compressor into the wrapped sink. After
// Recall, p is compressed as a self-contained stream and decoded straight
// through to the recall target before Write returns.
func (c *CompressedSink) Write(p []byte) (int, error) {
	if c.closed && !c.recalled {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	if c.kind == CodecNone {
		if _, err := c.sink.Write(p); err != nil {
			return 0, err
		}
		c.size += int64(len(p))
		return len(p), nil
	}

	if c.recalled {
		return c.forward(p)
	}

	if _, err := c.comp.Write(p); err != nil {
		return 0, err
	}
	c.size += int64(len(p))
	return len(p), nil
}

// Recall drives the compressor to completion so every byte written is
// represented in the wrapped sink, then replays the sink through a
// decompressing adapter into target. The caller observes the original,
// pre-compression bytes. Recalling twice is a no-op.
func (c *CompressedSink) Recall(target io.Writer) error {
	if c.recalled {
		return nil
	}
	if c.closed {
		return ErrClosed
	}

	if c.kind == CodecNone {
		if err := c.sink.Recall(target); err != nil {
			return err
		}
		c.recalled = true
		return nil
	}

	// Finish the compressed stream. The compressor drains everything it
	// still holds into the wrapped sink.
	if err := c.comp.Close(); err != nil {
		return fmt.Errorf("failed to finish compressor: %w", err)
	}

	dec := newDecompressWriter(target, c.kind)
	if err := c.sink.Recall(dec); err != nil {
		dec.abort(err)
		return err
	}
	// End the stream so the decoder flushes everything to target before
	// Recall returns.
	if err := dec.endStream(); err != nil {
		return fmt.Errorf("failed to decompress recalled data: %w", err)
	}

	c.dec = dec
	c.recalled = true
	return nil
}

// forward handles writes arriving after Recall: p is compressed as one
// self-contained stream, pushed through the forwarding sink into the
// decompressing adapter, and flushed to the target synchronously.
func (c *CompressedSink) forward(p []byte) (int, error) {
	frame, err := c.encode(p)
	if err != nil {
		return 0, err
	}
	if _, err := c.sink.Write(frame); err != nil {
		return 0, err
	}
	if err := c.dec.endStream(); err != nil {
		return 0, err
	}
	c.size += int64(len(p))
	return len(p), nil
}

// encode compresses p as a complete standalone stream (a gzip member or a
// zstd frame), which concatenates cleanly after the finished main stream.
func (c *CompressedSink) encode(p []byte) ([]byte, error) {
	switch c.kind {
	case CodecGzip:
		var buf bytes.Buffer
		compressor, err := gzip.NewWriterLevel(&buf, c.gzipLevel)
		if err != nil {
			return nil, err
		}
		if _, err := compressor.Write(p); err != nil {
			return nil, err
		}
		if err := compressor.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecZstd:
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(c.zstdLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, err
		}
		frame := encoder.EncodeAll(p, nil)
		if err := encoder.Close(); err != nil {
			return nil, err
		}
		return frame, nil
	default:
		return nil, fmt.Errorf("unsupported codec kind: %s", c.kind)
	}
}

// HasSpilled reports whether the wrapped sink has spilled.
func (c *CompressedSink) HasSpilled() bool { return c.sink.HasSpilled() }

// Size returns the total number of uncompressed bytes accepted so far.
func (c *CompressedSink) Size() int64 { return c.size }

// Close finishes the compressor if the sink was never recalled, then
// closes the wrapped sink. Idempotent.
func (c *CompressedSink) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.comp != nil && !c.recalled {
		if err := c.comp.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Cleanup deletes the wrapped sink's backing resource.
func (c *CompressedSink) Cleanup() {
	c.sink.Cleanup()
}

// decompressWriter adapts a recall target: compressed bytes written to it
// come out decompressed on the other side. Streams are delimited
// explicitly via endStream; a fresh decoder is started for each one.
type decompressWriter struct {
	target io.Writer
	kind   CodecKind

	pw   *io.PipeWriter
	done chan error
}

func newDecompressWriter(target io.Writer, kind CodecKind) *decompressWriter {
	return &decompressWriter{target: target, kind: kind}
}

func (d *decompressWriter) Write(p []byte) (int, error) {
	if d.pw == nil {
		d.start()
	}
	return d.pw.Write(p)
}

// start spins up the decoder for a new compressed stream. The decoder
// pulls from a pipe fed by Write and pushes decoded bytes to the target.
func (d *decompressWriter) start() {
	pr, pw := io.Pipe()
	d.pw = pw
	d.done = make(chan error, 1)
	go func() {
		d.done <- d.decode(pr)
	}()
}

func (d *decompressWriter) decode(pr *io.PipeReader) error {
	var reader io.ReadCloser
	switch d.kind {
	case CodecGzip:
		gzReader, err := gzip.NewReader(pr)
		if err != nil {
			pr.CloseWithError(err)
			return err
		}
		reader = gzReader
	case CodecZstd:
		zstdReader, err := zstd.NewReader(pr, zstd.WithDecoderConcurrency(1))
		if err != nil {
			pr.CloseWithError(err)
			return err
		}
		reader = zstdReader.IOReadCloser()
	default:
		err := fmt.Errorf("unsupported codec kind: %s", d.kind)
		pr.CloseWithError(err)
		return err
	}

	_, err := io.Copy(d.target, reader)
	if closeErr := reader.Close(); err == nil {
		err = closeErr
	}
	pr.CloseWithError(err)
	return err
}

// endStream marks the end of the current compressed stream and waits for
// the decoder to drain everything to the target. A no-op when nothing was
// written since the last call.
func (d *decompressWriter) endStream() error {
	if d.pw == nil {
		return nil
	}
	err := d.pw.Close()
	if decodeErr := <-d.done; err == nil {
		err = decodeErr
	}
	d.pw = nil
	d.done = nil
	return err
}

// abort tears the current stream down without caring about the outcome;
// used when the recall itself already failed.
func (d *decompressWriter) abort(cause error) {
	if d.pw == nil {
		return
	}
	_ = d.pw.CloseWithError(cause)
	<-d.done
	d.pw = nil
	d.done = nil
}
