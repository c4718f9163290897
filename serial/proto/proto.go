package proto

import (
	"google.golang.org/protobuf/proto"

	"github.com/teenjuna/framer/serial"
)

// Serializer encodes generated protobuf messages. Message is expected to be a pointer type such
// as *wrapperspb.StringValue.
type Serializer[Message proto.Message] struct {
	marshal proto.MarshalOptions
}

var _ serial.Serializer[proto.Message] = (*Serializer[proto.Message])(nil)

// New returns a serializer with deterministic marshaling, so equal messages always produce equal
// frames.
func New[Message proto.Message]() *Serializer[Message] {
	return &Serializer[Message]{
		marshal: proto.MarshalOptions{Deterministic: true},
	}
}

func (s *Serializer[Message]) Marshal(dst []byte, msg Message) ([]byte, error) {
	return s.marshal.MarshalAppend(dst, msg)
}

func (s *Serializer[Message]) Unmarshal(data []byte) (Message, error) {
	var zero Message
	msg := zero.ProtoReflect().Type().New().Interface().(Message)
	if err := proto.Unmarshal(data, msg); err != nil {
		return zero, err
	}
	return msg, nil
}
