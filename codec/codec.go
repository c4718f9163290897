// This package contains the main [Codec] interface, its error taxonomy and the framing
// implementations inside subpackages.
package codec

import (
	"bytes"
	"errors"
)

var (
	// ErrMalformedFrame means that a complete frame was found and consumed from the buffer, but
	// its contents could not be decoded. The stream can't be resynchronized automatically.
	ErrMalformedFrame = errors.New("codec: malformed frame")
	// ErrMalformedLength means that a length field can't describe a valid frame. Nothing is
	// consumed from the buffer.
	ErrMalformedLength = errors.New("codec: malformed length field")
	// ErrFrameTooLarge means that a frame exceeds the configured limit. Nothing is consumed from
	// the buffer on decode and nothing is appended on encode.
	ErrFrameTooLarge = errors.New("codec: frame too large")
	// ErrSerialization means that an item couldn't be serialized. Nothing is appended.
	ErrSerialization = errors.New("codec: serialization failed")
)

// Codec frames items into a byte stream and extracts them back.
//
// Implementations hold no state between calls: all undecoded bytes live in the caller's buffer.
// A single instance can serve any number of streams as long as each buffer is accessed by one
// goroutine at a time.
type Codec[Item any] interface {
	// Encode appends exactly one frame containing item to dst.
	Encode(dst *bytes.Buffer, item Item) error
	// Decode extracts the first complete frame from src.
	//
	// If src doesn't contain a complete frame yet, Decode returns ok == false and a nil error,
	// leaving src untouched. Otherwise it consumes exactly one frame. Every error wraps one of
	// the package's sentinel errors.
	Decode(src *bytes.Buffer) (item Item, ok bool, err error)
}

// DecodeAll decodes items from src until no complete frame is left, pushing each item to the
// provided function. It returns the number of decoded items.
func DecodeAll[Item any](c Codec[Item], src *bytes.Buffer, push func(Item)) (int, error) {
	var n int
	for {
		item, ok, err := c.Decode(src)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		push(item)
		n++
	}
}
