package cache

import "time"

// Entry holds the metadata stored with a cached item. The cache never holds
// the content bytes themselves, only size accounting and placement metadata.
type Entry struct {
	Hash           string    `json:"hash"`
	SizeBytes      uint64    `json:"sizeBytes"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	AccessCount    uint32    `json:"accessCount"`
	ReachLevel     int       `json:"reachLevel"`
	Domain         string    `json:"domain"`
	Category       string    `json:"category"`
	Priority       int       `json:"priority"`
}

// EvictCallback is called when an entry is evicted for capacity or TTL
// reasons. It is not called for explicit deletes or Clear. Callbacks run
// outside the cache lock; it is safe to call back into the cache.
type EvictCallback func(hash string, entry Entry)

// BlobCache is a bounded LRU store keyed by content hash. Capacity is
// byte-based: put evicts least-recently-used entries until the new entry
// fits. The priority field is advisory metadata only and never consulted
// by eviction.
type BlobCache interface {
	// Put adds or replaces an entry and returns the number of entries
	// evicted to make room. Re-inserting an existing hash lands it at the
	// most-recent position. An entry larger than the cache capacity is
	// refused and the put is a no-op.
	Put(hash string, sizeBytes uint64, reachLevel int, domain, category string, priority int) int

	// Has reports whether an entry exists. It does not affect recency or
	// hit/miss accounting.
	Has(hash string) bool

	// Touch moves an entry to the most-recent position and increments its
	// access count, recording a hit. A miss is recorded when the hash is
	// absent. Touch is the only operation that records misses.
	Touch(hash string) bool

	// Delete removes an entry. It affects neither eviction nor hit/miss
	// counters.
	Delete(hash string) bool

	// Metadata returns a copy of an entry's metadata without recording a
	// hit or miss.
	Metadata(hash string) (Entry, bool)

	// Size returns the summed byte size of live entries.
	Size() uint64

	// Count returns the number of live entries.
	Count() int

	// MaxSize returns the configured byte capacity.
	MaxSize() uint64

	// Stats returns a snapshot of cache statistics.
	Stats() Stats

	// Clear removes all entries without touching the hit/miss/eviction
	// counters.
	Clear()

	// Close releases cache resources. Operations after Close are a
	// programmer error.
	Close() error
}

// ChunkCache is a bounded store with TTL expiry layered on top of
// oldest-first eviction. Unlike BlobCache, recency is insertion order:
// Touch does not reposition entries.
type ChunkCache interface {
	// Put sweeps expired entries, then adds or replaces a chunk and
	// returns the number of entries evicted for capacity. Expired entries
	// removed by the sweep are not included in the returned count.
	Put(hash string, sizeBytes uint64) int

	// Has reports whether a chunk exists and has not out-lived the TTL.
	// Expired entries are reported absent but not removed.
	Has(hash string) bool

	// Touch records a hit on a live chunk. An expired chunk is deleted
	// and counted as a miss.
	Touch(hash string) bool

	// Delete removes a chunk.
	Delete(hash string) bool

	// Cleanup removes all expired chunks and returns how many were
	// removed.
	Cleanup() int

	// Size returns the summed byte size of live entries, expired or not.
	Size() uint64

	// Count returns the number of entries, expired or not.
	Count() int

	// MaxSize returns the configured byte capacity.
	MaxSize() uint64

	// TTL returns the configured time-to-live.
	TTL() time.Duration

	// Stats returns a snapshot of cache statistics.
	Stats() Stats

	// Clear removes all entries.
	Clear()

	// Close releases cache resources.
	Close() error
}

// ReachAwareCache composes eight independently bounded blob caches, one per
// reach level. Pressure at one reach level never evicts entries at another.
type ReachAwareCache interface {
	// Put stores an entry in the cache for its clamped reach level and
	// returns the number of entries evicted from that level.
	Put(hash string, sizeBytes uint64, reachLevel int, domain, category string, priority int) int

	// Has reports whether an entry exists at the given reach level.
	Has(hash string, reachLevel int) bool

	// Touch records a hit at the given reach level.
	Touch(hash string, reachLevel int) bool

	// Delete removes an entry from the given reach level.
	Delete(hash string, reachLevel int) bool

	// Metadata returns entry metadata from the given reach level.
	Metadata(hash string, reachLevel int) (Entry, bool)

	// StatsForReach returns the statistics of one reach level's cache.
	StatsForReach(reachLevel int) Stats

	// Stats returns statistics summed across all reach levels.
	Stats() Stats

	// TotalCount returns the entry count summed across all reach levels.
	TotalCount() int

	// TotalSize returns the byte size summed across all reach levels.
	TotalSize() uint64

	// HashesForDomain returns the hashes recorded for a domain together
	// with their reach levels.
	HashesForDomain(domain string) []DomainEntry

	// Clear empties all reach levels and the domain index.
	Clear()

	// Close releases all underlying caches.
	Close() error
}

// DomainEntry pairs a content hash with the reach level it was stored at.
type DomainEntry struct {
	Hash       string `json:"hash"`
	ReachLevel int    `json:"reachLevel"`
}

// reachLevels is the number of isolated reach partitions.
const reachLevels = 8

// clampReach clamps a reach level into [0, 7]. Out-of-range input is
// clamped, never rejected.
func clampReach(level int) int {
	if level < 0 {
		return 0
	}
	if level > reachLevels-1 {
		return reachLevels - 1
	}
	return level
}
