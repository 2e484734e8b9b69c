// Package metric provides Prometheus-based metrics collection for the
// cachecore engine.
//
// The package offers a centralized metrics registry managing both core
// engine metrics (resolution counts, backend selection, write buffer
// pressure) and component-specific metrics registered by individual caches.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//
//	// Record core engine metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordResolution("blob", "cached")
//	coreMetrics.RecordBackend("indexed")
//
// # Component-Specific Metrics
//
// Components register custom metrics through the MetricsRegistrar
// interface, which enables testing with mock registrars:
//
//	hitCounter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "cachecore_blob_hits_total",
//	    Help: "Total number of blob cache hits",
//	})
//	err := registry.RegisterCounter("blob-cache", "hits_total", hitCounter)
//
// Registration returns an invalid-classified error when the same
// component/metric pair is registered twice.
//
// # Thread Safety
//
// All registry operations are thread-safe. Registration methods use mutex
// protection and metric recording is lock-free per the Prometheus client
// guarantees.
//
// Exposition is left to the embedding application: PrometheusRegistry()
// returns the underlying *prometheus.Registry for use with promhttp or any
// other exposition mechanism.
package metric
