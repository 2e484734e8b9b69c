// Package engine assembles the content resolver and the cache tiers into
// one configured unit with a shared backend choice, background chunk
// cleanup, and periodic stats export.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ethosengine/cachecore/cache"
	"github.com/ethosengine/cachecore/config"
	"github.com/ethosengine/cachecore/errors"
	"github.com/ethosengine/cachecore/metric"
	"github.com/ethosengine/cachecore/resolver"
)

const (
	implPortable = "portable"
	implIndexed  = "indexed"
)

// Engine owns the resolver and cache instances for one process.
type Engine struct {
	Resolver *resolver.Resolver
	Blob     cache.BlobCache
	Chunk    cache.ChunkCache
	Reach    cache.ReachAwareCache

	implementation string
	cfg            config.Config
	logger         *slog.Logger
	metrics        *metric.Metrics

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	clock    func() time.Time
}

// WithLogger sets the engine's structured logger. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics exposes engine, cache, and resolver metrics through the
// given registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *engineOptions) {
		o.registry = registry
	}
}

// WithClock overrides the engine's time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *engineOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// New builds an engine from configuration. The indexed backend is probed
// once per process; when unavailable every cache falls back to the
// portable implementation.
func New(cfg config.Config, options ...Option) (*Engine, error) {
	opts := engineOptions{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}

	e := &Engine{
		cfg:    cfg,
		logger: opts.logger,
	}
	if opts.registry != nil {
		e.metrics = opts.registry.CoreMetrics()
	}

	if err := cfg.Validate(); err != nil {
		return nil, e.failure(errors.WrapInvalid(err, "engine", "New", "config validation"))
	}

	e.implementation = implPortable
	if cfg.PreferIndexed && indexedAvailable(opts.logger) {
		e.implementation = implIndexed
	}

	var cacheOpts []cache.Option
	cacheOpts = append(cacheOpts, cache.WithClock(opts.clock))

	newBlob := cache.NewBlob
	newChunk := cache.NewChunk
	newReach := cache.NewReachAware
	if e.implementation == implIndexed {
		newBlob = cache.NewBlobIndexed
		newChunk = cache.NewChunkIndexed
		newReach = cache.NewReachAwareIndexed
	}

	blob, err := newBlob(cfg.BlobMaxSizeBytes, withPrefix(cacheOpts, opts.registry, "blob")...)
	if err != nil {
		return nil, e.failure(errors.Wrap(err, "engine", "New", "blob cache construction"))
	}
	chunk, err := newChunk(cfg.ChunkMaxSizeBytes, cfg.ChunkTTL, withPrefix(cacheOpts, opts.registry, "chunk")...)
	if err != nil {
		blob.Close()
		return nil, e.failure(errors.Wrap(err, "engine", "New", "chunk cache construction"))
	}
	reach, err := newReach(cfg.ReachMaxSizeBytes, withPrefix(cacheOpts, opts.registry, "reach")...)
	if err != nil {
		blob.Close()
		chunk.Close()
		return nil, e.failure(errors.Wrap(err, "engine", "New", "reach cache construction"))
	}
	e.Blob = blob
	e.Chunk = chunk
	e.Reach = reach

	resolverOpts := []resolver.Option{
		resolver.WithLogger(opts.logger),
		resolver.WithClock(opts.clock),
	}
	if cfg.FallbackURL != "" {
		resolverOpts = append(resolverOpts, resolver.WithFallbackURL(cfg.FallbackURL))
	}
	if opts.registry != nil {
		resolverOpts = append(resolverOpts, resolver.WithMetrics(opts.registry))
	}
	e.Resolver = resolver.New(resolverOpts...)

	if e.metrics != nil {
		e.metrics.RecordBackend(e.implementation)
	}
	e.logger.Info("cache engine started",
		"implementation", e.implementation,
		"blob_capacity", cfg.BlobMaxSizeBytes,
		"reach_capacity", cfg.ReachMaxSizeBytes,
		"chunk_capacity", cfg.ChunkMaxSizeBytes,
		"chunk_ttl", cfg.ChunkTTL)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	if cfg.CleanupInterval > 0 {
		e.wg.Add(1)
		go e.cleanupLoop(ctx, cfg.CleanupInterval)
	}
	if cfg.StatsInterval > 0 {
		e.wg.Add(1)
		go e.statsLoop(ctx, cfg.StatsInterval)
	}

	return e, nil
}

// failure counts a constructor error by its classification before it is
// returned to the caller.
func (e *Engine) failure(err error) error {
	if e.metrics != nil {
		e.metrics.RecordError("engine", errors.Classify(err).String())
	}
	return err
}

// Implementation reports which cache backend the engine selected,
// "indexed" or "portable".
func (e *Engine) Implementation() string {
	return e.implementation
}

// Stats returns aggregate statistics across all cache tiers.
func (e *Engine) Stats() cache.Stats {
	total := e.Blob.Stats()
	total = total.Add(e.Chunk.Stats())
	total = total.Add(e.Reach.Stats())
	return total
}

// Close stops background loops and releases every cache and the resolver.
// Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.cancel()
		e.wg.Wait()

		for _, c := range []interface{ Close() error }{e.Blob, e.Chunk, e.Reach, e.Resolver} {
			if err := c.Close(); err != nil && e.closeErr == nil {
				e.closeErr = err
			}
		}
		e.logger.Info("cache engine stopped")
	})
	return e.closeErr
}

// cleanupLoop sweeps expired chunk entries on a fixed interval.
func (e *Engine) cleanupLoop(ctx context.Context, interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := e.Chunk.Cleanup(); removed > 0 {
				e.logger.Debug("expired chunk entries removed", "count", removed)
			}
		}
	}
}

// statsLoop logs aggregate cache and resolver statistics on a fixed
// interval.
func (e *Engine) statsLoop(ctx context.Context, interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cacheStats := e.Stats()
			resolverStats := e.Resolver.Stats()
			e.logger.Debug("cache engine stats",
				"items", cacheStats.ItemCount,
				"size_bytes", cacheStats.TotalSizeBytes,
				"evictions", cacheStats.EvictionCount,
				"hit_rate", cacheStats.HitRate(),
				"resolutions", resolverStats.ResolutionCount,
				"resolution_hit_rate", resolverStats.CacheHitRate)
		}
	}
}

func withPrefix(base []cache.Option, registry *metric.MetricsRegistry, prefix string) []cache.Option {
	if registry == nil {
		return base
	}
	opts := make([]cache.Option, len(base), len(base)+1)
	copy(opts, base)
	return append(opts, cache.WithMetrics(registry, prefix))
}
