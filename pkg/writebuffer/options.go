package writebuffer

import (
	"time"

	"github.com/ethosengine/cachecore/metric"
)

// Option configures buffer behavior using the functional options pattern.
type Option func(*bufferOptions)

// bufferOptions holds internal configuration for buffer instances.
// Statistics are always collected; Prometheus metrics are opt-in.
type bufferOptions struct {
	metrics      *bufferMetrics
	maxQueueSize int
	clock        func() time.Time
}

// WithMetrics exposes buffer gauges and counters through the engine
// metrics registry. A nil registry is ignored.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(opts *bufferOptions) {
		if registry != nil {
			opts.metrics = &bufferMetrics{core: registry.CoreMetrics()}
		}
	}
}

// WithMaxQueueSize overrides the backpressure queue capacity. Values
// below the batch size are raised to it.
func WithMaxQueueSize(size int) Option {
	return func(opts *bufferOptions) {
		if size > 0 {
			opts.maxQueueSize = size
		}
	}
}

// WithClock overrides the buffer's time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(opts *bufferOptions) {
		if clock != nil {
			opts.clock = clock
		}
	}
}

func applyOptions(options ...Option) *bufferOptions {
	opts := &bufferOptions{
		clock: time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
