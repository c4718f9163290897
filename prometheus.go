package framer

import (
	"errors"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teenjuna/framer/codec"
)

// PrometheusConfig is a config of the Prometheus metrics provided by readers and writers.
//
// An instance can be created only by the [Prometheus] function. The zero value is invalid. All
// readers and writers configured with the same instance share its collectors.
type PrometheusConfig struct {
	// Namespace of the metrics.
	Namespace string
	// Subsystem of the metrics.
	Subsystem string
	// Options for the decoded frames counter.
	FramesDecoded prometheus.CounterOpts
	// Options for the encoded frames counter.
	FramesEncoded prometheus.CounterOpts
	// Options for the read bytes counter.
	BytesRead prometheus.CounterOpts
	// Options for the written bytes counter.
	BytesWritten prometheus.CounterOpts
	// Options for the buffered bytes gauge.
	Buffered prometheus.GaugeOpts
	// Options for the codec errors counter.
	Errors prometheus.CounterOpts
	// Options for the frame size histogram.
	FrameSize prometheus.HistogramOpts

	registerer prometheus.Registerer
	once       sync.Once
	m          *metrics
}

// Prometheus returns a [PrometheusConfig] with the provided registerer. If registerer is nil,
// metrics will not be registered. Many default parameters can be configured by passing
// configuration functions.
func Prometheus(
	registerer prometheus.Registerer,
	configFuncs ...func(c *PrometheusConfig),
) *PrometheusConfig {
	const (
		namespace = "framer"
		subsystem = ""
	)

	c := PrometheusConfig{
		registerer: registerer,
		Namespace:  namespace,
		Subsystem:  subsystem,
		FramesDecoded: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_decoded",
			Help:      "Number of frames decoded from streams",
		},
		FramesEncoded: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_encoded",
			Help:      "Number of frames encoded into streams",
		},
		BytesRead: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_read",
			Help:      "Number of bytes read from streams",
		},
		BytesWritten: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_written",
			Help:      "Number of bytes written to streams",
		},
		Buffered: prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buffered_bytes",
			Help:      "Number of bytes read but not yet decoded into frames",
		},
		Errors: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors",
			Help:      "Number of errors occurred during frame encoding and decoding",
		},
		FrameSize: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frame_size",
			Help:      "Size of encoded frames in bytes",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
		},
	}

	for _, cf := range configFuncs {
		if cf != nil {
			cf(&c)
		}
	}

	return &c
}

func (c *PrometheusConfig) metrics() *metrics {
	c.once.Do(func() {
		m := metrics{
			framesDecoded: prometheus.NewCounter(c.FramesDecoded),
			framesEncoded: prometheus.NewCounter(c.FramesEncoded),
			bytesRead:     prometheus.NewCounter(c.BytesRead),
			bytesWritten:  prometheus.NewCounter(c.BytesWritten),
			buffered:      prometheus.NewGauge(c.Buffered),
			errors:        prometheus.NewCounterVec(c.Errors, []string{"op", "kind"}),
			frameSize:     prometheus.NewHistogramVec(c.FrameSize, []string{"op"}),
		}

		if c.registerer != nil {
			c.registerer.MustRegister(
				m.framesDecoded,
				m.framesEncoded,
				m.bytesRead,
				m.bytesWritten,
				m.buffered,
				m.errors,
				m.frameSize,
			)
		}

		c.m = &m
	})
	return c.m
}

type metrics struct {
	framesDecoded prometheus.Counter
	framesEncoded prometheus.Counter
	bytesRead     prometheus.Counter
	bytesWritten  prometheus.Counter
	buffered      prometheus.Gauge
	errors        *prometheus.CounterVec
	frameSize     *prometheus.HistogramVec
}

func (m *metrics) fail(op string, err error) {
	m.errors.WithLabelValues(op, errorKind(err)).Inc()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, codec.ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, codec.ErrMalformedLength):
		return "malformed_length"
	case errors.Is(err, codec.ErrFrameTooLarge):
		return "frame_too_large"
	case errors.Is(err, codec.ErrSerialization):
		return "serialization"
	case errors.Is(err, ErrBufferFull):
		return "buffer_full"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "unexpected_eof"
	default:
		return "io"
	}
}
