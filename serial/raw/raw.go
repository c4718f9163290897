// Package raw passes opaque byte slices through unchanged.
package raw

import "github.com/teenjuna/framer/serial"

type Serializer struct{}

var _ serial.Serializer[[]byte] = Serializer{}

func New() Serializer {
	return Serializer{}
}

func (Serializer) Marshal(dst []byte, item []byte) ([]byte, error) {
	return append(dst, item...), nil
}

func (Serializer) Unmarshal(data []byte) ([]byte, error) {
	return Clone(data), nil
}

// Clone copies data into a new slice. Unlike [bytes.Clone], empty input yields an empty non-nil
// slice, so a zero-length frame is distinguishable from no frame at all.
func Clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
