package framer

import (
	"github.com/rs/zerolog"
)

const (
	defaultReadSize    = 4 << 10
	defaultMaxBuffered = 16 << 20
)

// Config holds the settings shared by [Reader] and [Writer].
type Config struct {
	readSize    int
	maxBuffered int
	flushSize   int
	logger      zerolog.Logger
	prometheus  *PrometheusConfig
}

type ConfigFunc = func(c *Config)

// ReadSize sets how many bytes a [Reader] requests from its source at once.
func (c *Config) ReadSize(size int) {
	if size < 1 {
		panic("read size can't be < 1")
	}
	c.readSize = size
}

// MaxBuffered limits how many bytes a [Reader] accumulates without finding a complete frame.
// Zero means no limit.
func (c *Config) MaxBuffered(size int) {
	if size < 0 {
		panic("max buffered can't be < 0")
	}
	c.maxBuffered = size
}

// FlushSize sets how many encoded bytes a [Writer] collects before writing them out. Zero means
// every item is written immediately.
func (c *Config) FlushSize(size int) {
	if size < 0 {
		panic("flush size can't be < 0")
	}
	c.flushSize = size
}

// Logger sets the logger for stream level events. Codecs themselves never log.
func (c *Config) Logger(logger zerolog.Logger) {
	c.logger = logger
}

// Prometheus enables metrics. See [Prometheus].
func (c *Config) Prometheus(prometheus *PrometheusConfig) {
	if prometheus == nil {
		panic("prometheus can't be nil")
	}
	c.prometheus = prometheus
}

func newConfig(configFuncs ...ConfigFunc) *Config {
	cfg := Config{}
	cfg.ReadSize(defaultReadSize)
	cfg.MaxBuffered(defaultMaxBuffered)
	cfg.FlushSize(0)
	cfg.Logger(zerolog.Nop())
	cfg.Prometheus(Prometheus(nil))
	for _, cf := range configFuncs {
		cf(&cfg)
	}
	return &cfg
}
