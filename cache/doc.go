// Package cache provides the bounded, byte-accounted cache engine:
// an LRU blob cache keyed by content hash, a TTL chunk cache, and a
// reach-aware composite that isolates eviction pressure per reach level.
//
// Each cache type ships in two backends with identical contracts: a
// portable backend built on intrusive linked lists, and an indexed backend
// built on btree time buckets for O(log n) recency updates and O(k) expiry
// sweeps. The engine package selects a backend once per process.
//
// Caches store metadata only, never content bytes. Statistics are always
// collected; Prometheus export is opt-in via WithMetrics. All caches are
// safe for concurrent use, with last-write-wins semantics for racing puts.
package cache
