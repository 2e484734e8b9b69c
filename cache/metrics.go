package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ethosengine/cachecore/metric"
)

// cacheMetrics holds Prometheus metrics for one cache instance.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter

	sizeBytes prometheus.Gauge
	items     prometheus.Gauge
}

// newCacheMetrics creates and registers cache metrics with the provided registry.
func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cachecore",
			Subsystem:   "cache",
			Name:        "hits_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cachecore",
			Subsystem:   "cache",
			Name:        "misses_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of cache misses",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cachecore",
			Subsystem:   "cache",
			Name:        "evictions_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of cache evictions",
		}),
		sizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "cachecore",
			Subsystem:   "cache",
			Name:        "size_bytes",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Summed byte size of live cache entries",
		}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "cachecore",
			Subsystem:   "cache",
			Name:        "items",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Current number of entries in cache",
		}),
	}

	if err := registry.RegisterCounter(prefix, "cache_hits", m.hits); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "cache_misses", m.misses); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "cache_evictions", m.evictions); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "cache_size_bytes", m.sizeBytes); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "cache_items", m.items); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *cacheMetrics) recordHit() {
	m.hits.Inc()
}

func (m *cacheMetrics) recordMiss() {
	m.misses.Inc()
}

func (m *cacheMetrics) recordEviction() {
	m.evictions.Inc()
}

// updateSize sets the current cache size gauges.
func (m *cacheMetrics) updateSize(items int, sizeBytes uint64) {
	m.items.Set(float64(items))
	m.sizeBytes.Set(float64(sizeBytes))
}
