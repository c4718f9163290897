// This package contains the frame transport interfaces and the implementations inside
// subpackages.
//
// A transport moves opaque frames between two peers. It guarantees that a received frame is
// exactly a frame that was sent, delivered at most once. Everything else, including integrity of
// the bytes on an underlying link, is the job of the framing codec below it.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by transport methods after the transport, or the stream being used,
	// has been closed.
	ErrClosed = errors.New("transport: closed")
)

// Sender sends frames.
type Sender interface {
	// Send transmits a single frame. The transport doesn't retain frame after Send returns.
	Send(ctx context.Context, frame []byte) error
}

// Receiver receives frames.
type Receiver interface {
	// Recv blocks until the next frame arrives.
	//
	// A receiver of a uni-directional stream returns io.EOF after the sending side closed the
	// stream and every frame sent before that was received.
	Recv(ctx context.Context) ([]byte, error)
}

// SendStream is the sending side of a uni-directional stream.
type SendStream interface {
	Sender
	// Close tells the receiving side that no more frames will be sent.
	Close() error
}

// Transport is a connection between two peers.
//
// Frames sent with Send are datagrams: no ordering is guaranteed between them. Frames sent over
// a single stream opened with OpenUni arrive to the peer's matching receiver in order.
//
// All methods are safe for concurrent use.
type Transport interface {
	Sender
	Receiver
	// OpenUni opens a new uni-directional stream to the peer.
	OpenUni(ctx context.Context) (SendStream, error)
	// AcceptUni blocks until the peer opens a uni-directional stream.
	AcceptUni(ctx context.Context) (Receiver, error)
	// Close closes the transport. Blocked calls return [ErrClosed].
	Close() error
}
