package mux

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Kind tells what an envelope does to its stream.
type Kind uint8

const (
	// KindData carries a frame.
	KindData Kind = iota + 1
	// KindOpen opens a stream.
	KindOpen
	// KindClose closes a stream.
	KindClose
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Envelope is the unit exchanged by multiplexed transports. It's encoded as a MessagePack array
// of its three fields.
type Envelope struct {
	// Stream is the ID of the stream. Stream 0 carries datagrams.
	Stream uint32
	Kind   Kind
	// Payload is the frame carried by a [KindData] envelope and is empty for other kinds.
	Payload []byte
}

func (e *Envelope) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, e.Msgsize())
	o = msgp.AppendArrayHeader(o, 3)
	o = msgp.AppendUint32(o, e.Stream)
	o = msgp.AppendUint8(o, uint8(e.Kind))
	o = msgp.AppendBytes(o, e.Payload)
	return o, nil
}

func (e *Envelope) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return bts, msgp.WrapError(err)
	}
	if sz != 3 {
		return bts, msgp.ArrayError{Wanted: 3, Got: sz}
	}
	if e.Stream, bts, err = msgp.ReadUint32Bytes(bts); err != nil {
		return bts, msgp.WrapError(err, "Stream")
	}
	var kind uint8
	if kind, bts, err = msgp.ReadUint8Bytes(bts); err != nil {
		return bts, msgp.WrapError(err, "Kind")
	}
	e.Kind = Kind(kind)
	if e.Payload, bts, err = msgp.ReadBytesBytes(bts, nil); err != nil {
		return bts, msgp.WrapError(err, "Payload")
	}
	if e.Payload == nil {
		e.Payload = []byte{}
	}
	return bts, nil
}

func (e *Envelope) Msgsize() int {
	return msgp.ArrayHeaderSize +
		msgp.Uint32Size +
		msgp.Uint8Size +
		msgp.BytesPrefixSize + len(e.Payload)
}
