package json

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/teenjuna/framer/serial"
)

var errTrailingData = errors.New("json: trailing data after value")

type Serializer[Item any] struct{}

var _ serial.Serializer[any] = Serializer[any]{}

func New[Item any]() Serializer[Item] {
	return Serializer[Item]{}
}

func (Serializer[Item]) Marshal(dst []byte, item Item) ([]byte, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return dst, err
	}
	return append(dst, b...), nil
}

func (Serializer[Item]) Unmarshal(data []byte) (Item, error) {
	var item Item

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&item); err != nil {
		return item, err
	}
	if dec.More() {
		return item, errTrailingData
	}

	return item, nil
}
