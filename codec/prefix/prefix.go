// Package prefix frames items by writing the payload length in front of the raw serialized
// payload.
//
// Frame layout with [Fixed32]:
//
//	[4 bytes little-endian length L][L bytes payload]
//
// Frame layout with [Varint]:
//
//	[1-10 bytes LEB128 length L][L bytes payload]
package prefix

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/teenjuna/framer/codec"
	"github.com/teenjuna/framer/serial"
)

const fixed32Len = 4

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
	cfg.Width(Fixed32)
	for _, cf := range configFuncs {
		cf(&cfg)
	}

	return &Codec[Item]{
		cfg:        cfg,
		serializer: serializer,
	}
}

// Width returns the length field encoding used by the codec.
func (c *Codec[Item]) Width() Width {
	return c.cfg.width
}

func (c *Codec[Item]) Encode(dst *bytes.Buffer, item Item) error {
	payload, err := c.serializer.Marshal(nil, item)
	if err != nil {
		return fmt.Errorf("%w: %w", codec.ErrSerialization, err)
	}

	size := uint64(len(payload))
	if err := c.checkSize(size); err != nil {
		return err
	}

	dst.Grow(binary.MaxVarintLen64 + len(payload))
	frame := dst.AvailableBuffer()
	switch c.cfg.width {
	case Fixed32:
		frame = binary.LittleEndian.AppendUint32(frame, uint32(size))
	case Varint:
		frame = binary.AppendUvarint(frame, size)
	}
	frame = append(frame, payload...)

	_, _ = dst.Write(frame)
	return nil
}

func (c *Codec[Item]) Decode(src *bytes.Buffer) (Item, bool, error) {
	var zero Item

	buf := src.Bytes()

	var (
		size   uint64
		header int
	)
	switch c.cfg.width {
	case Fixed32:
		if len(buf) < fixed32Len {
			return zero, false, nil
		}
		size, header = uint64(binary.LittleEndian.Uint32(buf)), fixed32Len
	case Varint:
		v, n := binary.Uvarint(buf)
		if n == 0 {
			// The varint continues past the end of the buffer.
			return zero, false, nil
		}
		if n < 0 {
			return zero, false, fmt.Errorf("%w: varint overflows 64 bits", codec.ErrMalformedLength)
		}
		size, header = v, n
	}

	if err := c.checkSize(size); err != nil {
		return zero, false, err
	}
	if uint64(len(buf)-header) < size {
		return zero, false, nil
	}

	frame := src.Next(header + int(size))
	item, err := c.serializer.Unmarshal(frame[header:])
	if err != nil {
		return zero, false, fmt.Errorf("%w: %w", codec.ErrMalformedFrame, err)
	}

	return item, true, nil
}

func (c *Codec[Item]) checkSize(size uint64) error {
	if c.cfg.width == Fixed32 && size > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes don't fit a 32-bit length", codec.ErrFrameTooLarge, size)
	}
	if c.cfg.maxFrame > 0 && size > uint64(c.cfg.maxFrame) {
		return fmt.Errorf("%w: %d bytes, limit is %d", codec.ErrFrameTooLarge, size, c.cfg.maxFrame)
	}
	return nil
}
