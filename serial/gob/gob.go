package gob

import (
	"bytes"
	"encoding/gob"
	"errors"

	"github.com/teenjuna/framer/serial"
)

var errTrailingData = errors.New("gob: trailing data after value")

// Serializer writes every item as its own gob stream, type information included, so each frame
// can be decoded without any state from previous frames.
type Serializer[Item any] struct{}

var _ serial.Serializer[any] = Serializer[any]{}

func New[Item any]() Serializer[Item] {
	return Serializer[Item]{}
}

func (Serializer[Item]) Marshal(dst []byte, item Item) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	if err := gob.NewEncoder(buf).Encode(&item); err != nil {
		return dst, err
	}
	return buf.Bytes(), nil
}

func (Serializer[Item]) Unmarshal(data []byte) (Item, error) {
	var item Item

	r := bytes.NewReader(data)
	if err := gob.NewDecoder(r).Decode(&item); err != nil {
		return item, err
	}
	if r.Len() != 0 {
		return item, errTrailingData
	}

	return item, nil
}
