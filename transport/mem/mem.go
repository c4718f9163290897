// Package mem provides transports connected inside a single process.
package mem

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/teenjuna/framer/transport"
)

const defaultQueueSize = 64

type Config struct {
	queueSize int
}

type ConfigFunc = func(c *Config)

// QueueSize sets how many frames can wait for a receiver before Send blocks.
func (c *Config) QueueSize(size int) {
	if size < 0 {
		panic("queue size can't be < 0")
	}
	c.queueSize = size
}

// Transport is one end of a [Pipe].
type Transport struct {
	cfg       *Config
	peer      *Transport
	datagrams chan []byte
	streams   chan *stream
	closed    chan struct{}
	closeOnce sync.Once
}

var _ transport.Transport = (*Transport)(nil)

// Pipe returns two transports connected to each other.
func Pipe(configFuncs ...ConfigFunc) (*Transport, *Transport) {
	cfg := &Config{}
	cfg.QueueSize(defaultQueueSize)
	for _, cf := range configFuncs {
		cf(cfg)
	}

	a, b := newTransport(cfg), newTransport(cfg)
	a.peer, b.peer = b, a
	return a, b
}

func newTransport(cfg *Config) *Transport {
	return &Transport{
		cfg:       cfg,
		datagrams: make(chan []byte, cfg.queueSize),
		streams:   make(chan *stream, cfg.queueSize),
		closed:    make(chan struct{}),
	}
}

func (t *Transport) Send(ctx context.Context, frame []byte) error {
	if t.isClosed() || t.peer.isClosed() {
		return transport.ErrClosed
	}

	select {
	case t.peer.datagrams <- bytes.Clone(frame):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.closed:
		return transport.ErrClosed
	case <-t.peer.closed:
		return transport.ErrClosed
	}
}

func (t *Transport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-t.datagrams:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, transport.ErrClosed
	case <-t.peer.closed:
	}

	// Datagrams the peer sent before closing are still delivered.
	select {
	case frame := <-t.datagrams:
		return frame, nil
	default:
		return nil, transport.ErrClosed
	}
}

func (t *Transport) OpenUni(ctx context.Context) (transport.SendStream, error) {
	if t.isClosed() || t.peer.isClosed() {
		return nil, transport.ErrClosed
	}

	s := &stream{
		transport: t,
		frames:    make(chan []byte, t.cfg.queueSize),
		done:      make(chan struct{}),
	}

	select {
	case t.peer.streams <- s:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, transport.ErrClosed
	case <-t.peer.closed:
		return nil, transport.ErrClosed
	}
}

func (t *Transport) AcceptUni(ctx context.Context) (transport.Receiver, error) {
	select {
	case s := <-t.streams:
		return &receiver{stream: s, closed: t.closed}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, transport.ErrClosed
	case <-t.peer.closed:
	}

	// Streams the peer opened before closing can still be accepted.
	select {
	case s := <-t.streams:
		return &receiver{stream: s, closed: t.closed}, nil
	default:
		return nil, transport.ErrClosed
	}
}

// Close closes this end of the pipe. Frames already queued for this end are dropped, frames
// queued for the peer can still be received by it.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
	return nil
}

func (t *Transport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

type stream struct {
	transport *Transport
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *stream) Send(ctx context.Context, frame []byte) error {
	select {
	case <-s.done:
		return transport.ErrClosed
	default:
	}
	if s.transport.isClosed() || s.transport.peer.isClosed() {
		return transport.ErrClosed
	}

	select {
	case s.frames <- bytes.Clone(frame):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return transport.ErrClosed
	case <-s.transport.closed:
		return transport.ErrClosed
	case <-s.transport.peer.closed:
		return transport.ErrClosed
	}
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

type receiver struct {
	stream *stream
	closed chan struct{}
}

func (r *receiver) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-r.stream.frames:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.closed:
		return nil, transport.ErrClosed
	case <-r.stream.done:
	case <-r.stream.transport.closed:
	}

	// Frames sent before the stream or the opening side closed are still delivered.
	select {
	case frame := <-r.stream.frames:
		return frame, nil
	default:
	}

	select {
	case <-r.stream.done:
		return nil, io.EOF
	default:
		return nil, transport.ErrClosed
	}
}
