// Package cachecore is a content resolution and caching core for
// distributed content networks.
//
// Two coupled subsystems make up the module:
//
// The content resolver (resolver package) chooses which registered source
// should serve a piece of content. Sources are ranked by tier (local,
// projection, authoritative, external) then priority, and a location index
// learns from recorded fetch successes so repeat resolutions prefer
// sources that already served the content. Resolution failure is data,
// not an error.
//
// The cache engine (cache package) provides bounded, byte-accounted
// metadata stores: an LRU blob cache, a TTL chunk cache, and a
// reach-aware cache that isolates entries into eight independent
// partitions by audience reach so flooding one reach level can never
// evict another's entries. Each cache exists in two interchangeable
// implementations, a btree-indexed backend and a portable linked-list
// backend; the engine package probes the indexed backend once per process
// and falls back to portable permanently when it is unavailable.
//
// Supporting packages: score computes pure cache priority and content
// freshness from reach, mastery, and age; pkg/writebuffer batches write
// operations behind priority queues with dedup, bounded retry, and
// backpressure; config, errors, and metric carry configuration parsing,
// classified errors, and Prometheus export.
//
// The core performs no I/O. Transport, identity, and persistence are
// external collaborators that consume resolutions, report fetch results,
// and drain write batches.
//
// Typical assembly:
//
//	cfg := config.DefaultConfig()
//	eng, err := engine.New(cfg, engine.WithMetrics(registry))
//	if err != nil {
//		return err
//	}
//	defer eng.Close()
//
//	eng.Resolver.RegisterSource("indexeddb", resolver.TierLocal, 90, []string{"blob"}, "")
//	eng.Reach.Put(hash, size, reachLevel, domain, category, priority)
package cachecore
