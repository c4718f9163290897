// Package framer turns byte streams into sequences of items and back, using a framing
// [codec.Codec] to find the boundaries between items.
package framer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/teenjuna/framer/codec"
)

var (
	// ErrBufferFull is returned by [Reader.Read] when more than the configured number of bytes
	// is buffered without a complete frame.
	ErrBufferFull = errors.New("buffered data exceeds limit without a complete frame")
)

const maxEmptyReads = 100

// Reader decodes items from an [io.Reader].
//
// A Reader is not safe for concurrent use. Once Read returns an error, every following call
// returns the same error.
type Reader[Item any] struct {
	cfg     *Config
	metrics *metrics
	src     io.Reader
	codec   codec.Codec[Item]
	buf     bytes.Buffer
	eof     bool
	err     error
}

func NewReader[Item any](
	src io.Reader,
	codec codec.Codec[Item],
	configFuncs ...ConfigFunc,
) *Reader[Item] {
	if src == nil {
		panic("reader can't be nil")
	}
	if codec == nil {
		panic("codec can't be nil")
	}

	cfg := newConfig(configFuncs...)
	return &Reader[Item]{
		cfg:     cfg,
		metrics: cfg.prometheus.metrics(),
		src:     src,
		codec:   codec,
	}
}

// Read returns the next item.
//
// It returns [io.EOF] if the source ended on a frame boundary and [io.ErrUnexpectedEOF] if it
// ended in the middle of a frame.
func (r *Reader[Item]) Read() (Item, error) {
	var zero Item
	if r.err != nil {
		return zero, r.err
	}

	for {
		before := r.buf.Len()
		item, ok, err := r.codec.Decode(&r.buf)
		if consumed := before - r.buf.Len(); consumed != 0 {
			r.metrics.buffered.Sub(float64(consumed))
			r.metrics.frameSize.WithLabelValues("decode").Observe(float64(consumed))
		}
		if err != nil {
			return zero, r.fail(fmt.Errorf("decode frame: %w", err))
		}
		if ok {
			r.metrics.framesDecoded.Inc()
			return item, nil
		}

		if r.eof {
			if r.buf.Len() != 0 {
				return zero, r.fail(io.ErrUnexpectedEOF)
			}
			r.err = io.EOF
			return zero, r.err
		}
		if limit := r.cfg.maxBuffered; limit > 0 && r.buf.Len() > limit {
			return zero, r.fail(ErrBufferFull)
		}

		if err := r.fill(); err != nil {
			return zero, r.fail(fmt.Errorf("read: %w", err))
		}
	}
}

// All returns a sequence of the remaining items. The sequence ends after [io.EOF] or after
// yielding the first other error.
func (r *Reader[Item]) All() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for {
			item, err := r.Read()
			if err == io.EOF {
				return
			}
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// Buffered returns the number of bytes read from the source but not yet decoded.
func (r *Reader[Item]) Buffered() int {
	return r.buf.Len()
}

// fill reads at least one byte from the source or marks it as exhausted.
func (r *Reader[Item]) fill() error {
	r.buf.Grow(r.cfg.readSize)
	chunk := r.buf.AvailableBuffer()[:r.cfg.readSize]

	for range maxEmptyReads {
		n, err := r.src.Read(chunk)
		if n > 0 {
			_, _ = r.buf.Write(chunk[:n])
			r.metrics.bytesRead.Add(float64(n))
			r.metrics.buffered.Add(float64(n))
		}
		if err == io.EOF {
			r.eof = true
			return nil
		}
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}

	return io.ErrNoProgress
}

func (r *Reader[Item]) fail(err error) error {
	r.err = err
	r.metrics.fail("decode", err)
	r.cfg.logger.Warn().
		Err(err).
		Int("buffered", r.buf.Len()).
		Msg("stream decoding stopped")
	return err
}
