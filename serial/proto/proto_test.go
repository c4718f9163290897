package proto_test

import (
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/teenjuna/framer/internal/testing/require"
	"github.com/teenjuna/framer/serial/proto"
)

func TestSerializer(t *testing.T) {
	s := proto.New[*structpb.Struct]()

	msg, err := structpb.NewStruct(map[string]any{
		"id":   42,
		"text": "Hello\x00World",
		"tags": []any{"a", "b"},
	})
	require.Nil(t, err)

	data, err := s.Marshal(nil, msg)
	require.Nil(t, err)

	decoded, err := s.Unmarshal(data)
	require.Nil(t, err)
	require.Equal(t, decoded.AsMap(), msg.AsMap())

	// Deterministic marshaling keeps map order stable.
	again, err := s.Marshal(nil, decoded)
	require.Nil(t, err)
	require.Equal(t, again, data)
}

func TestEmptyMessage(t *testing.T) {
	s := proto.New[*wrapperspb.StringValue]()

	data, err := s.Marshal(nil, wrapperspb.String(""))
	require.Nil(t, err)
	require.Equal(t, len(data), 0)

	decoded, err := s.Unmarshal(data)
	require.Nil(t, err)
	require.NotNil(t, decoded)
	require.Equal(t, decoded.GetValue(), "")
}

func TestInvalid(t *testing.T) {
	s := proto.New[*wrapperspb.StringValue]()

	_, err := s.Unmarshal([]byte{0x0A, 0x05, 'a'})
	require.NotNil(t, err)
}
