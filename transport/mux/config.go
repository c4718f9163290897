package mux

import (
	"github.com/rs/zerolog"

	"github.com/teenjuna/framer"
	"github.com/teenjuna/framer/codec"
)

const defaultQueueSize = 64

type Config struct {
	framing   codec.Codec[Envelope]
	framer    []framer.ConfigFunc
	queueSize int
	logger    zerolog.Logger
}

type ConfigFunc = func(c *Config)

// Framing sets the codec used to put envelopes on the connection. Both peers must use the same
// one. The default is COBS over MessagePack.
func (c *Config) Framing(framing codec.Codec[Envelope]) {
	if framing == nil {
		panic("framing can't be nil")
	}
	c.framing = framing
}

// Framer adds configuration for the reader and the writer of the connection, for example to
// enable metrics.
func (c *Config) Framer(configFuncs ...framer.ConfigFunc) {
	c.framer = append(c.framer, configFuncs...)
}

// QueueSize sets how many received frames can wait in a single stream before the connection
// stops being read. Datagrams that don't fit into their queue are dropped.
func (c *Config) QueueSize(size int) {
	if size < 1 {
		panic("queue size can't be < 1")
	}
	c.queueSize = size
}

func (c *Config) Logger(logger zerolog.Logger) {
	c.logger = logger
}
