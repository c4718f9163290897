package framer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/teenjuna/framer/codec"
)

// Writer encodes items into an [io.Writer].
//
// A Writer is not safe for concurrent use.
type Writer[Item any] struct {
	cfg     *Config
	metrics *metrics
	dst     io.Writer
	codec   codec.Codec[Item]
	buf     bytes.Buffer
}

func NewWriter[Item any](
	dst io.Writer,
	codec codec.Codec[Item],
	configFuncs ...ConfigFunc,
) *Writer[Item] {
	if dst == nil {
		panic("writer can't be nil")
	}
	if codec == nil {
		panic("codec can't be nil")
	}

	cfg := newConfig(configFuncs...)
	return &Writer[Item]{
		cfg:     cfg,
		metrics: cfg.prometheus.metrics(),
		dst:     dst,
		codec:   codec,
	}
}

// Write encodes item and writes out the collected frames once the flush size is reached.
//
// An item that fails to encode leaves previously collected frames intact.
func (w *Writer[Item]) Write(item Item) error {
	before := w.buf.Len()
	if err := w.codec.Encode(&w.buf, item); err != nil {
		w.metrics.fail("encode", err)
		w.cfg.logger.Debug().Err(err).Msg("item skipped")
		return fmt.Errorf("encode item: %w", err)
	}

	w.metrics.framesEncoded.Inc()
	w.metrics.frameSize.WithLabelValues("encode").Observe(float64(w.buf.Len() - before))

	if w.buf.Len() >= w.cfg.flushSize {
		return w.Flush()
	}
	return nil
}

// Flush writes out all collected frames.
func (w *Writer[Item]) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}

	n, err := w.buf.WriteTo(w.dst)
	w.metrics.bytesWritten.Add(float64(n))
	if err != nil {
		w.metrics.fail("encode", err)
		w.cfg.logger.Warn().
			Err(err).
			Int("pending", w.buf.Len()).
			Msg("stream flush failed")
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// Buffered returns the number of encoded bytes not yet written out.
func (w *Writer[Item]) Buffered() int {
	return w.buf.Len()
}
