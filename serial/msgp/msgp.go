package msgp

import (
	"fmt"

	"github.com/teenjuna/framer/serial"
	"github.com/tinylib/msgp/msgp"
)

// Serializer encodes items with the methods generated by the msgp tool.
type Serializer[Item any, ItemPtr msgpable[Item]] struct{}

var _ serial.Serializer[msgp.Raw] = Serializer[msgp.Raw, *msgp.Raw]{}

func New[Item any, ItemPtr msgpable[Item]]() Serializer[Item, ItemPtr] {
	return Serializer[Item, ItemPtr]{}
}

func (Serializer[Item, ItemPtr]) Marshal(dst []byte, item Item) ([]byte, error) {
	b, err := ItemPtr(&item).MarshalMsg(dst)
	if err != nil {
		return dst, err
	}
	return b, nil
}

func (Serializer[Item, ItemPtr]) Unmarshal(data []byte) (Item, error) {
	var item Item
	rest, err := ItemPtr(&item).UnmarshalMsg(data)
	if err != nil {
		return item, err
	}
	if len(rest) != 0 {
		return item, fmt.Errorf("msgp: %d trailing bytes after value", len(rest))
	}
	return item, nil
}

type msgpable[Item any] interface {
	*Item
	msgp.Marshaler
	msgp.Unmarshaler
}
