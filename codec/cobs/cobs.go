// Package cobs frames items by escaping every zero byte out of the serialized payload with
// Consistent Overhead Byte Stuffing and terminating each frame with a single 0x00.
//
// Frame layout:
//
//	[escaped payload, no zero bytes][0x00]
package cobs

import (
	"bytes"
	"fmt"

	"github.com/teenjuna/framer/codec"
	stuffing "github.com/teenjuna/framer/internal/cobs"
	"github.com/teenjuna/framer/serial"
)

// Delimiter terminates every frame.
const Delimiter byte = 0x00

type Codec[Item any] struct {
	cfg        Config
	serializer serial.Serializer[Item]
}

var _ codec.Codec[any] = (*Codec[any])(nil)

func New[Item any](serializer serial.Serializer[Item], configFuncs ...ConfigFunc) *Codec[Item] {
	if serializer == nil {
		panic("serializer can't be nil")
	}

	cfg := Config{}
	for _, cf := range configFuncs {
		cf(&cfg)
	}

	return &Codec[Item]{
		cfg:        cfg,
		serializer: serializer,
	}
}

func (c *Codec[Item]) Encode(dst *bytes.Buffer, item Item) error {
	payload, err := c.serializer.Marshal(nil, item)
	if err != nil {
		return fmt.Errorf("%w: %w", codec.ErrSerialization, err)
	}

	size := stuffing.MaxEncodedLen(len(payload))
	dst.Grow(size + 1)

	frame := stuffing.Append(dst.AvailableBuffer(), payload)
	if c.cfg.maxFrame > 0 && len(frame) > c.cfg.maxFrame {
		return fmt.Errorf("%w: %d bytes, limit is %d", codec.ErrFrameTooLarge, len(frame), c.cfg.maxFrame)
	}
	frame = append(frame, Delimiter)

	_, _ = dst.Write(frame)
	return nil
}

func (c *Codec[Item]) Decode(src *bytes.Buffer) (Item, bool, error) {
	var zero Item

	end := bytes.IndexByte(src.Bytes(), Delimiter)
	if limit := c.cfg.maxFrame; limit > 0 && (end > limit || (end < 0 && src.Len() > limit)) {
		return zero, false, fmt.Errorf("%w: no delimiter within %d bytes", codec.ErrFrameTooLarge, limit)
	}
	if end < 0 {
		return zero, false, nil
	}

	frame := src.Next(end + 1)[:end:end]

	// Unescaping never grows the data, so it is done in place over the consumed bytes.
	payload, err := stuffing.Decode(frame[:0], frame)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %w", codec.ErrMalformedFrame, err)
	}

	item, err := c.serializer.Unmarshal(payload)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %w", codec.ErrMalformedFrame, err)
	}

	return item, true, nil
}
