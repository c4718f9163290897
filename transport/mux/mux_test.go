package mux_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/teenjuna/framer/codec/cobs"
	"github.com/teenjuna/framer/codec/prefix"
	"github.com/teenjuna/framer/internal/testing/require"
	"github.com/teenjuna/framer/serial/msgp"
	"github.com/teenjuna/framer/transport"
	"github.com/teenjuna/framer/transport/mux"
)

func pipe(t *testing.T, configFuncs ...mux.ConfigFunc) (*mux.Transport, *mux.Transport) {
	t.Helper()
	a, b := net.Pipe()
	client := mux.New(a, mux.Client, configFuncs...)
	server := mux.New(b, mux.Server, configFuncs...)
	deferClose(t, client, server)
	return client, server
}

func TestDatagrams(t *testing.T) {
	client, server := pipe(t)

	frames := [][]byte{{0, 1, 0, 2}, {}, bytes.Repeat([]byte{0}, 1000)}
	for _, frame := range frames {
		require.Nil(t, client.Send(t.Context(), frame))

		received, err := server.Recv(t.Context())
		require.Nil(t, err)
		require.Equal(t, received, frame)
	}

	require.Nil(t, server.Send(t.Context(), []byte("pong")))
	received, err := client.Recv(t.Context())
	require.Nil(t, err)
	require.Equal(t, received, []byte("pong"))
}

func TestUniStreams(t *testing.T) {
	client, server := pipe(t)

	s1, err := client.OpenUni(t.Context())
	require.Nil(t, err)
	s2, err := client.OpenUni(t.Context())
	require.Nil(t, err)

	r1, err := server.AcceptUni(t.Context())
	require.Nil(t, err)
	r2, err := server.AcceptUni(t.Context())
	require.Nil(t, err)

	for i := range 10 {
		require.Nil(t, s1.Send(t.Context(), []byte{1, byte(i)}))
		require.Nil(t, s2.Send(t.Context(), []byte{2, byte(i)}))
	}
	require.Nil(t, s1.Close())
	require.Equal(t, s1.Close(), transport.ErrClosed)
	require.Equal(t, s1.Send(t.Context(), []byte{1}), transport.ErrClosed)

	for i := range 10 {
		frame, err := r1.Recv(t.Context())
		require.Nil(t, err)
		require.Equal(t, frame, []byte{1, byte(i)})

		frame, err = r2.Recv(t.Context())
		require.Nil(t, err)
		require.Equal(t, frame, []byte{2, byte(i)})
	}

	_, err = r1.Recv(t.Context())
	require.Equal(t, err, io.EOF)

	require.Nil(t, s2.Close())
	_, err = r2.Recv(t.Context())
	require.Equal(t, err, io.EOF)
}

func TestServerStreams(t *testing.T) {
	client, server := pipe(t)

	stream, err := server.OpenUni(t.Context())
	require.Nil(t, err)
	receiver, err := client.AcceptUni(t.Context())
	require.Nil(t, err)

	// The client also opens a stream, IDs of the two sides never collide.
	other, err := client.OpenUni(t.Context())
	require.Nil(t, err)
	_, err = server.AcceptUni(t.Context())
	require.Nil(t, err)
	require.Nil(t, other.Close())

	require.Nil(t, stream.Send(t.Context(), []byte("from server")))
	frame, err := receiver.Recv(t.Context())
	require.Nil(t, err)
	require.Equal(t, frame, []byte("from server"))
}

func TestStreamIDsExhausted(t *testing.T) {
	client, server := pipe(t)

	// The client owns 2^31 odd IDs, the server one less even ID since 2^32 wraps to 0.
	client.SkipStreams(1<<31 - 1)
	server.SkipStreams(1<<31 - 2)

	last, err := client.OpenUni(t.Context())
	require.Nil(t, err)
	require.NotNil(t, last)
	_, err = server.AcceptUni(t.Context())
	require.Nil(t, err)

	_, err = client.OpenUni(t.Context())
	require.Equal(t, err, mux.ErrStreamsExhausted)

	last, err = server.OpenUni(t.Context())
	require.Nil(t, err)
	require.NotNil(t, last)
	_, err = client.AcceptUni(t.Context())
	require.Nil(t, err)

	_, err = server.OpenUni(t.Context())
	require.Equal(t, err, mux.ErrStreamsExhausted)
}

func TestPrefixFraming(t *testing.T) {
	client, server := pipe(t, func(c *mux.Config) {
		c.Framing(prefix.New[mux.Envelope](msgp.New[mux.Envelope](), func(c *prefix.Config) {
			c.Width(prefix.Varint)
		}))
	})

	stream, err := client.OpenUni(t.Context())
	require.Nil(t, err)
	receiver, err := server.AcceptUni(t.Context())
	require.Nil(t, err)

	require.Nil(t, stream.Send(t.Context(), []byte{0, 0, 0}))
	frame, err := receiver.Recv(t.Context())
	require.Nil(t, err)
	require.Equal(t, frame, []byte{0, 0, 0})
}

func TestClose(t *testing.T) {
	a, b := net.Pipe()
	client := mux.New(a, mux.Client)
	server := mux.New(b, mux.Server)

	receiver := func() transport.Receiver {
		stream, err := client.OpenUni(t.Context())
		require.Nil(t, err)
		receiver, err := server.AcceptUni(t.Context())
		require.Nil(t, err)
		require.NotNil(t, stream)
		return receiver
	}()

	require.Nil(t, client.Close())
	require.Equal(t, client.Close(), transport.ErrClosed)
	require.Equal(t, client.Send(t.Context(), []byte{1}), transport.ErrClosed)
	_, err := client.Recv(t.Context())
	require.Equal(t, err, transport.ErrClosed)

	// The server sees the end of the connection.
	_, err = server.Recv(t.Context())
	require.Equal(t, err, transport.ErrClosed)
	_, err = receiver.Recv(t.Context())
	require.Equal(t, err, transport.ErrClosed)
	_, err = server.AcceptUni(t.Context())
	require.Equal(t, err, transport.ErrClosed)
	require.Nil(t, server.Err())

	require.Nil(t, server.Close())
}

func TestProtocolViolation(t *testing.T) {
	a, b := net.Pipe()
	server := mux.New(b, mux.Server)
	defer a.Close()

	// Data for a stream that was never opened.
	var buf bytes.Buffer
	framing := cobs.New[mux.Envelope](msgp.New[mux.Envelope]())
	require.Nil(t, framing.Encode(&buf, mux.Envelope{Stream: 5, Kind: mux.KindData}))
	_, err := a.Write(buf.Bytes())
	require.Nil(t, err)

	_, err = server.Recv(t.Context())
	require.Equal(t, err, transport.ErrClosed)
	require.ErrorIs(t, server.Err(), mux.ErrProtocol)
	require.ErrorIs(t, server.Close(), mux.ErrProtocol)
}

func TestPeerParity(t *testing.T) {
	a, b := net.Pipe()
	client := mux.New(a, mux.Client)
	defer b.Close()

	// A server must not open odd streams.
	var buf bytes.Buffer
	framing := cobs.New[mux.Envelope](msgp.New[mux.Envelope]())
	require.Nil(t, framing.Encode(&buf, mux.Envelope{Stream: 1, Kind: mux.KindOpen}))
	_, err := b.Write(buf.Bytes())
	require.Nil(t, err)

	_, err = client.AcceptUni(t.Context())
	require.Equal(t, err, transport.ErrClosed)
	require.ErrorIs(t, client.Err(), mux.ErrProtocol)
	require.ErrorIs(t, client.Close(), mux.ErrProtocol)
}

func TestEnvelope(t *testing.T) {
	env := mux.Envelope{Stream: 7, Kind: mux.KindClose}
	b, err := env.MarshalMsg(nil)
	require.Nil(t, err)

	var decoded mux.Envelope
	rest, err := decoded.UnmarshalMsg(b)
	require.Nil(t, err)
	require.Equal(t, len(rest), 0)
	require.Equal(t, decoded, mux.Envelope{Stream: 7, Kind: mux.KindClose, Payload: []byte{}})

	require.Equal(t, mux.KindOpen.String(), "open")
	require.Equal(t, mux.Kind(9).String(), "kind(9)")
}

func TestNewValidation(t *testing.T) {
	require.PanicWithError(t, "conn can't be nil", func() {
		mux.New(nil, mux.Client)
	})

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	require.PanicWithError(t, "unknown role", func() {
		mux.New(a, mux.Role(5))
	})

	require.PanicWithError(t, "framing can't be nil", func() {
		(&mux.Config{}).Framing(nil)
	})
	require.PanicWithError(t, "queue size can't be < 1", func() {
		(&mux.Config{}).QueueSize(0)
	})
}

func deferClose(t *testing.T, transports ...*mux.Transport) {
	t.Cleanup(func() {
		for _, tr := range transports {
			if err := tr.Close(); err != nil && !errors.Is(err, transport.ErrClosed) {
				t.Fatalf("close transport: %v", err)
			}
		}
	})
}
