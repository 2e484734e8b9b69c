package cache

import (
	"time"

	"github.com/ethosengine/cachecore/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option func(*cacheOptions)

// cacheOptions holds internal configuration for cache instances.
// Stats are always collected; Prometheus export is opt-in via WithMetrics().
type cacheOptions struct {
	// metricsReg is optional - if provided, cache stats are also exposed as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string

	// evictCallback is called when entries are evicted for capacity or TTL reasons
	evictCallback EvictCallback

	// clock supplies the current time, overridable for deterministic TTL tests
	clock func() time.Time
}

// WithMetrics enables Prometheus metrics export for cache statistics.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(opts *cacheOptions) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback invoked when entries are evicted for
// capacity or TTL reasons. The callback receives the hash and metadata of
// the evicted entry and runs outside the cache lock.
func WithEvictionCallback(callback EvictCallback) Option {
	return func(opts *cacheOptions) {
		opts.evictCallback = callback
	}
}

// WithClock overrides the cache's time source. Intended for tests that need
// deterministic TTL expiry.
func WithClock(clock func() time.Time) Option {
	return func(opts *cacheOptions) {
		if clock != nil {
			opts.clock = clock
		}
	}
}

// applyOptions applies functional options to create final cache configuration.
// This is an internal helper used by cache constructors.
func applyOptions(options ...Option) *cacheOptions {
	opts := &cacheOptions{
		clock: time.Now,
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}

// buildMetrics registers per-cache Prometheus metrics when requested.
func (o *cacheOptions) buildMetrics() (*cacheMetrics, error) {
	if o.metricsReg == nil || o.metricsPrefix == "" {
		return nil, nil
	}
	return newCacheMetrics(o.metricsReg, o.metricsPrefix)
}
