// Package fixture provides message types shared by tests of different packages.
package fixture

import (
	"math/rand/v2"
	"strconv"

	"github.com/tinylib/msgp/msgp"
)

// Message is encoded as a MessagePack array of its three fields.
type Message struct {
	ID   uint32
	Data []byte
	Text string
}

func (m *Message) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, m.Msgsize())
	o = msgp.AppendArrayHeader(o, 3)
	o = msgp.AppendUint32(o, m.ID)
	o = msgp.AppendBytes(o, m.Data)
	o = msgp.AppendString(o, m.Text)
	return o, nil
}

func (m *Message) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return bts, msgp.WrapError(err)
	}
	if sz != 3 {
		return bts, msgp.ArrayError{Wanted: 3, Got: sz}
	}
	if m.ID, bts, err = msgp.ReadUint32Bytes(bts); err != nil {
		return bts, msgp.WrapError(err, "ID")
	}
	if m.Data, bts, err = msgp.ReadBytesBytes(bts, nil); err != nil {
		return bts, msgp.WrapError(err, "Data")
	}
	if len(m.Data) == 0 {
		m.Data = nil
	}
	if m.Text, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return bts, msgp.WrapError(err, "Text")
	}
	return bts, nil
}

func (m *Message) Msgsize() int {
	return msgp.ArrayHeaderSize +
		msgp.Uint32Size +
		msgp.BytesPrefixSize + len(m.Data) +
		msgp.StringPrefixSize + len(m.Text)
}

// Messages returns n messages with random data, roughly a quarter of which bytes are zero.
func Messages(n int) []Message {
	msgs := make([]Message, 0, n)
	for i := range n {
		data := make([]byte, rand.IntN(600))
		for j := range data {
			if rand.IntN(4) != 0 {
				data[j] = byte(rand.IntN(256))
			}
		}
		if len(data) == 0 {
			data = nil
		}
		msgs = append(msgs, Message{
			ID:   uint32(i),
			Data: data,
			Text: "message " + strconv.Itoa(i),
		})
	}
	return msgs
}
