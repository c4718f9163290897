// Package mux multiplexes datagrams and any number of uni-directional streams over a single
// byte stream connection, such as a TCP connection or a serial link.
//
// Every frame travels inside an [Envelope] that names its stream. Envelopes are serialized with
// MessagePack and framed with a [codec.Codec], COBS by default.
package mux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/teenjuna/framer"
	"github.com/teenjuna/framer/codec/cobs"
	"github.com/teenjuna/framer/serial/msgp"
	"github.com/teenjuna/framer/transport"
)

var (
	// ErrProtocol is returned when the peer sends an envelope that breaks the stream rules. The
	// connection stops being read after that.
	ErrProtocol = errors.New("mux: protocol violation")
	// ErrStreamsExhausted is returned by [Transport.OpenUni] when every stream ID of the side has
	// been used.
	ErrStreamsExhausted = errors.New("mux: stream IDs exhausted")
)

// Role decides which stream IDs a side allocates. The two sides of a connection must have
// different roles.
type Role int

const (
	// Client opens streams with odd IDs.
	Client Role = iota
	// Server opens streams with even IDs.
	Server
)

func (r Role) String() string {
	switch r {
	case Client:
		return "client"
	case Server:
		return "server"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

type Transport struct {
	cfg  *Config
	role Role
	conn io.ReadWriteCloser

	writeMu sync.Mutex
	writer  *framer.Writer[Envelope]
	reader  *framer.Reader[Envelope]

	opened  *atomic.Uint64
	closing *atomic.Bool

	mu        sync.Mutex
	streams   map[uint32]*inbox
	datagrams chan []byte
	accepts   chan *inbox

	ctx   context.Context
	stop  func()
	group *errgroup.Group
	err   error
}

var _ transport.Transport = (*Transport)(nil)

// New starts multiplexing over conn. The transport owns conn from now on and closes it on
// [Transport.Close].
func New(conn io.ReadWriteCloser, role Role, configFuncs ...ConfigFunc) *Transport {
	if conn == nil {
		panic("conn can't be nil")
	}
	if role != Client && role != Server {
		panic("unknown role")
	}

	cfg := &Config{}
	cfg.Framing(cobs.New[Envelope](msgp.New[Envelope]()))
	cfg.QueueSize(defaultQueueSize)
	cfg.Logger(zerolog.Nop())
	for _, cf := range configFuncs {
		cf(cfg)
	}

	logger := cfg.logger.With().Stringer("role", role).Logger()
	cfg.logger = logger
	streamConfig := append(
		[]framer.ConfigFunc{func(c *framer.Config) { c.Logger(logger) }},
		cfg.framer...,
	)

	var (
		ctx_, stop = context.WithCancel(context.Background())
		group, ctx = errgroup.WithContext(ctx_)
	)

	t := Transport{
		cfg:  cfg,
		role: role,
		conn: conn,

		writer: framer.NewWriter(conn, cfg.framing, streamConfig...),
		reader: framer.NewReader(conn, cfg.framing, streamConfig...),

		opened:  new(atomic.Uint64),
		closing: new(atomic.Bool),

		streams:   make(map[uint32]*inbox),
		datagrams: make(chan []byte, cfg.queueSize),
		accepts:   make(chan *inbox, cfg.queueSize),

		ctx:   ctx,
		stop:  stop,
		group: group,
	}

	t.group.Go(t.readLoop)

	return &t
}

// Send sends a datagram. Datagrams the peer has no room for are dropped.
//
// Writes to the connection can't be interrupted, so ctx is only checked before writing.
func (t *Transport) Send(ctx context.Context, frame []byte) error {
	return t.write(ctx, Envelope{Kind: KindData, Payload: frame})
}

func (t *Transport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-t.datagrams:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.ctx.Done():
	}

	select {
	case frame := <-t.datagrams:
		return frame, nil
	default:
		return nil, transport.ErrClosed
	}
}

func (t *Transport) OpenUni(ctx context.Context) (transport.SendStream, error) {
	// Client IDs are 1, 3, ... 2^32-1 and server IDs are 2, 4, ... 2^32-2.
	n := t.opened.Add(1) - 1
	id := 2*n + 1
	if t.role == Server {
		id++
	}
	if id > math.MaxUint32 {
		return nil, ErrStreamsExhausted
	}

	if err := t.write(ctx, Envelope{Stream: uint32(id), Kind: KindOpen}); err != nil {
		return nil, err
	}

	t.cfg.logger.Debug().Uint64("stream", id).Msg("stream opened")

	return &sendStream{
		transport: t,
		id:        uint32(id),
		closed:    new(atomic.Bool),
	}, nil
}

func (t *Transport) AcceptUni(ctx context.Context) (transport.Receiver, error) {
	select {
	case in := <-t.accepts:
		return &receiver{transport: t, inbox: in}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.ctx.Done():
		return nil, transport.ErrClosed
	}
}

// Close stops reading and closes the connection.
func (t *Transport) Close() error {
	if t.closing.Swap(true) {
		return transport.ErrClosed
	}

	errs := make([]error, 0)

	t.stop()
	if err := t.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close conn: %w", err))
	}
	if err := t.group.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("read loop: %w", err))
	}

	return errors.Join(errs...)
}

// Err returns the reason the connection stopped being read, if it did. It's nil while the
// connection is healthy and after a clean end of the stream.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Transport) write(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.closing.Load() || t.ctx.Err() != nil {
		return transport.ErrClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.writer.Write(env); err != nil {
		return fmt.Errorf("write %s envelope: %w", env.Kind, err)
	}
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("write %s envelope: %w", env.Kind, err)
	}
	return nil
}

func (t *Transport) readLoop() error {
	defer t.stop()

	for env, err := range t.reader.All() {
		if err == nil {
			err = t.dispatch(env)
		}
		if err == nil {
			continue
		}

		if t.closing.Load() {
			return nil
		}

		t.mu.Lock()
		t.err = err
		t.mu.Unlock()

		t.cfg.logger.Warn().Err(err).Msg("connection stopped")
		if errors.Is(err, ErrProtocol) {
			return err
		}
		return nil
	}

	t.cfg.logger.Debug().Msg("connection ended")
	return nil
}

func (t *Transport) dispatch(env Envelope) error {
	if env.Stream == 0 {
		if env.Kind != KindData {
			return fmt.Errorf("%w: %s envelope on datagram stream", ErrProtocol, env.Kind)
		}
		select {
		case t.datagrams <- env.Payload:
		default:
			t.cfg.logger.Warn().Int("size", len(env.Payload)).Msg("datagram dropped")
		}
		return nil
	}

	switch env.Kind {
	case KindOpen:
		if t.isLocal(env.Stream) {
			return fmt.Errorf("%w: peer opened stream %d with own parity", ErrProtocol, env.Stream)
		}

		t.mu.Lock()
		_, exists := t.streams[env.Stream]
		in := &inbox{
			frames: make(chan []byte, t.cfg.queueSize),
			done:   make(chan struct{}),
		}
		if !exists {
			t.streams[env.Stream] = in
		}
		t.mu.Unlock()

		if exists {
			return fmt.Errorf("%w: stream %d opened twice", ErrProtocol, env.Stream)
		}

		t.cfg.logger.Debug().Uint32("stream", env.Stream).Msg("stream accepted")

		select {
		case t.accepts <- in:
			return nil
		case <-t.ctx.Done():
			return t.ctx.Err()
		}

	case KindData:
		in, err := t.inbox(env.Stream)
		if err != nil {
			return err
		}

		select {
		case in.frames <- env.Payload:
			return nil
		case <-t.ctx.Done():
			return t.ctx.Err()
		}

	case KindClose:
		in, err := t.inbox(env.Stream)
		if err != nil {
			return err
		}

		t.mu.Lock()
		delete(t.streams, env.Stream)
		t.mu.Unlock()
		close(in.done)

		t.cfg.logger.Debug().Uint32("stream", env.Stream).Msg("stream closed by peer")
		return nil

	default:
		return fmt.Errorf("%w: unknown envelope %s", ErrProtocol, env.Kind)
	}
}

func (t *Transport) inbox(id uint32) (*inbox, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in, ok := t.streams[id]
	if !ok {
		return nil, fmt.Errorf("%w: stream %d is not open", ErrProtocol, id)
	}
	return in, nil
}

// isLocal reports whether the stream ID belongs to the streams this side opens.
func (t *Transport) isLocal(id uint32) bool {
	odd := id%2 == 1
	return odd == (t.role == Client)
}

type inbox struct {
	frames chan []byte
	done   chan struct{}
}

type sendStream struct {
	transport *Transport
	id        uint32
	closed    *atomic.Bool
}

func (s *sendStream) Send(ctx context.Context, frame []byte) error {
	if s.closed.Load() {
		return transport.ErrClosed
	}
	return s.transport.write(ctx, Envelope{Stream: s.id, Kind: KindData, Payload: frame})
}

func (s *sendStream) Close() error {
	if s.closed.Swap(true) {
		return transport.ErrClosed
	}
	s.transport.cfg.logger.Debug().Uint32("stream", s.id).Msg("stream closed")
	return s.transport.write(context.Background(), Envelope{Stream: s.id, Kind: KindClose})
}

type receiver struct {
	transport *Transport
	inbox     *inbox
}

func (r *receiver) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-r.inbox.frames:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.inbox.done:
	case <-r.transport.ctx.Done():
	}

	// Frames received before the stream ended are still delivered.
	select {
	case frame := <-r.inbox.frames:
		return frame, nil
	default:
	}

	select {
	case <-r.inbox.done:
		return nil, io.EOF
	default:
		return nil, transport.ErrClosed
	}
}
