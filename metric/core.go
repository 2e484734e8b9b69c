package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics (not cache-instance specific).
// Per-cache metrics are registered by the caches themselves through the
// MetricsRegistrar interface.
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	SourcesRegistered  prometheus.Gauge
	ContentIndexed     prometheus.Gauge

	// Engine metrics
	BackendActive *prometheus.GaugeVec
	ErrorsTotal   *prometheus.CounterVec

	// Write buffer metrics
	BufferDepth     *prometheus.GaugeVec
	BufferFlushes   *prometheus.CounterVec
	BufferRetries   prometheus.Counter
	BufferRejects   prometheus.Counter
	BufferInFlight  prometheus.Gauge
	BackpressurePct prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Resolution metrics
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cachecore",
				Subsystem: "resolver",
				Name:      "resolutions_total",
				Help:      "Total number of resolution attempts",
			},
			[]string{"content_type", "outcome"},
		),

		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cachecore",
				Subsystem: "resolver",
				Name:      "duration_seconds",
				Help:      "Resolution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"content_type"},
		),

		SourcesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cachecore",
				Subsystem: "resolver",
				Name:      "sources_registered",
				Help:      "Number of currently registered content sources",
			},
		),

		ContentIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cachecore",
				Subsystem: "resolver",
				Name:      "content_indexed",
				Help:      "Number of content IDs with known locations",
			},
		),

		// Engine metrics
		BackendActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "cachecore",
				Subsystem: "engine",
				Name:      "backend_active",
				Help:      "Active cache backend (1 for the selected implementation)",
			},
			[]string{"implementation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cachecore",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		// Write buffer metrics
		BufferDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "cachecore",
				Subsystem: "writebuffer",
				Name:      "depth",
				Help:      "Number of pending operations per priority queue",
			},
			[]string{"priority"},
		),

		BufferFlushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cachecore",
				Subsystem: "writebuffer",
				Name:      "flushes_total",
				Help:      "Total number of flush batches by outcome",
			},
			[]string{"outcome"},
		),

		BufferRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cachecore",
				Subsystem: "writebuffer",
				Name:      "retries_total",
				Help:      "Total number of operations re-queued for retry",
			},
		),

		BufferRejects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cachecore",
				Subsystem: "writebuffer",
				Name:      "rejects_total",
				Help:      "Total number of operations rejected due to backpressure",
			},
		),

		BufferInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cachecore",
				Subsystem: "writebuffer",
				Name:      "in_flight",
				Help:      "Number of operations currently awaiting commit",
			},
		),

		BackpressurePct: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cachecore",
				Subsystem: "writebuffer",
				Name:      "backpressure_percent",
				Help:      "Write buffer fill level from 0 to 100",
			},
		),
	}
}

// RecordResolution increments the resolution counter for a content type
func (c *Metrics) RecordResolution(contentType, outcome string) {
	c.ResolutionsTotal.WithLabelValues(contentType, outcome).Inc()
}

// RecordResolutionDuration records resolution time
func (c *Metrics) RecordResolutionDuration(contentType string, duration time.Duration) {
	c.ResolutionDuration.WithLabelValues(contentType).Observe(duration.Seconds())
}

// RecordSourceCount updates the registered source gauge
func (c *Metrics) RecordSourceCount(count int) {
	c.SourcesRegistered.Set(float64(count))
}

// RecordIndexedContent updates the indexed content gauge
func (c *Metrics) RecordIndexedContent(count int) {
	c.ContentIndexed.Set(float64(count))
}

// RecordBackend marks the given implementation as the active backend
func (c *Metrics) RecordBackend(implementation string) {
	c.BackendActive.WithLabelValues(implementation).Set(1)
}

// RecordError increments the error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordBufferDepth updates the pending operation gauge for a priority queue
func (c *Metrics) RecordBufferDepth(priority string, depth int) {
	c.BufferDepth.WithLabelValues(priority).Set(float64(depth))
}

// RecordBufferFlush increments the flush counter
func (c *Metrics) RecordBufferFlush(outcome string) {
	c.BufferFlushes.WithLabelValues(outcome).Inc()
}

// RecordBufferRetry increments the retry counter
func (c *Metrics) RecordBufferRetry() {
	c.BufferRetries.Inc()
}

// RecordBufferReject increments the backpressure rejection counter
func (c *Metrics) RecordBufferReject() {
	c.BufferRejects.Inc()
}

// RecordBufferInFlight updates the in-flight operation gauge
func (c *Metrics) RecordBufferInFlight(count int) {
	c.BufferInFlight.Set(float64(count))
}

// RecordBackpressure updates the backpressure gauge
func (c *Metrics) RecordBackpressure(pct float64) {
	c.BackpressurePct.Set(pct)
}
