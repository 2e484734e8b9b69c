package cache

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/ethosengine/cachecore/errors"
)

// chunkIndexed is the indexed chunk cache backend. Entries are indexed by
// creation time in a btree, giving O(k) expiry sweeps where k is the number
// of expired entries. Touch never repositions entries.
type chunkIndexed struct {
	mu        sync.Mutex
	maxSize   uint64
	totalSize uint64
	ttl       time.Duration
	entries   map[string]*Entry
	byCreated *btree.BTreeG[timeBucket]
	stats     *statistics
	metrics   *cacheMetrics
	evictFn   EvictCallback
	now       func() time.Time
}

// NewChunkIndexed creates a btree-indexed chunk cache bounded to
// maxSizeBytes with the given entry TTL. Returns an error if metrics
// registration fails when requested.
func NewChunkIndexed(maxSizeBytes uint64, ttl time.Duration, options ...Option) (ChunkCache, error) {
	opts := applyOptions(options...)

	metrics, err := opts.buildMetrics()
	if err != nil {
		return nil, errors.WrapTransient(err, "cache", "NewChunkIndexed", "metrics registration")
	}

	return &chunkIndexed{
		maxSize:   maxSizeBytes,
		ttl:       ttl,
		entries:   make(map[string]*Entry),
		byCreated: btree.NewG(32, bucketLess),
		stats:     &statistics{},
		metrics:   metrics,
		evictFn:   opts.evictCallback,
		now:       opts.clock,
	}, nil
}

func (c *chunkIndexed) Put(hash string, sizeBytes uint64) int {
	if hash == "" || sizeBytes > c.maxSize {
		return 0
	}

	var removedEntries []Entry

	c.mu.Lock()

	if existing, exists := c.entries[hash]; exists {
		c.removeEntry(existing)
	}

	c.cleanupLocked(&removedEntries)

	evicted := 0
	for c.totalSize+sizeBytes > c.maxSize && len(c.entries) > 0 {
		victim := c.oldestEntry()
		if victim == nil {
			break
		}
		if c.evictFn != nil {
			removedEntries = append(removedEntries, *victim)
		}
		c.removeEntry(victim)
		c.stats.eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
		evicted++
	}

	now := c.now()
	entry := &Entry{
		Hash:           hash,
		SizeBytes:      sizeBytes,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	c.entries[hash] = entry
	c.totalSize += sizeBytes
	c.addToBucket(now.UnixNano(), hash)

	if c.metrics != nil {
		c.metrics.updateSize(len(c.entries), c.totalSize)
	}

	c.mu.Unlock()

	for _, e := range removedEntries {
		c.evictFn(e.Hash, e)
	}

	return evicted
}

func (c *chunkIndexed) Has(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[hash]
	if !exists {
		return false
	}
	return !c.expired(entry)
}

func (c *chunkIndexed) Touch(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[hash]
	if !exists {
		c.stats.miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return false
	}

	if c.expired(entry) {
		c.stats.miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		c.removeEntry(entry)
		if c.metrics != nil {
			c.metrics.updateSize(len(c.entries), c.totalSize)
		}
		return false
	}

	entry.LastAccessedAt = c.now()
	entry.AccessCount++

	c.stats.hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return true
}

func (c *chunkIndexed) Delete(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[hash]
	if !exists {
		return false
	}

	c.removeEntry(entry)
	if c.metrics != nil {
		c.metrics.updateSize(len(c.entries), c.totalSize)
	}
	return true
}

func (c *chunkIndexed) Cleanup() int {
	var removedEntries []Entry

	c.mu.Lock()
	cleaned := c.cleanupLocked(&removedEntries)
	if c.metrics != nil {
		c.metrics.updateSize(len(c.entries), c.totalSize)
	}
	c.mu.Unlock()

	for _, e := range removedEntries {
		c.evictFn(e.Hash, e)
	}

	return cleaned
}

func (c *chunkIndexed) Size() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

func (c *chunkIndexed) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *chunkIndexed) MaxSize() uint64 {
	return c.maxSize
}

func (c *chunkIndexed) TTL() time.Duration {
	return c.ttl
}

func (c *chunkIndexed) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(len(c.entries), c.totalSize)
}

func (c *chunkIndexed) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.byCreated.Clear(false)
	c.totalSize = 0
	if c.metrics != nil {
		c.metrics.updateSize(0, 0)
	}
}

func (c *chunkIndexed) Close() error {
	c.Clear()
	return nil
}

func (c *chunkIndexed) expired(entry *Entry) bool {
	return c.now().Sub(entry.CreatedAt) > c.ttl
}

// cleanupLocked removes all expired entries via the creation-time index.
// Must be called with the mutex held.
func (c *chunkIndexed) cleanupLocked(removedEntries *[]Entry) int {
	cutoff := c.now().Add(-c.ttl).UnixNano()

	var expired []string
	c.byCreated.AscendLessThan(timeBucket{at: cutoff}, func(bucket timeBucket) bool {
		expired = append(expired, bucket.hashes...)
		return true
	})

	cleaned := 0
	for _, hash := range expired {
		entry, exists := c.entries[hash]
		if !exists {
			continue
		}
		if c.evictFn != nil {
			*removedEntries = append(*removedEntries, *entry)
		}
		c.removeEntry(entry)
		c.stats.eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
		cleaned++
	}
	return cleaned
}

// oldestEntry returns the entry with the oldest creation time. Must be
// called with the mutex held.
func (c *chunkIndexed) oldestEntry() *Entry {
	bucket, ok := c.byCreated.Min()
	if !ok || len(bucket.hashes) == 0 {
		return nil
	}
	return c.entries[bucket.hashes[0]]
}

// removeEntry removes an entry from both indices and adjusts size
// accounting. Must be called with the mutex held.
func (c *chunkIndexed) removeEntry(entry *Entry) {
	delete(c.entries, entry.Hash)
	c.totalSize -= entry.SizeBytes
	c.removeFromBucket(entry.CreatedAt.UnixNano(), entry.Hash)
}

// addToBucket appends a hash to the creation-time bucket. Must be called
// with the mutex held.
func (c *chunkIndexed) addToBucket(at int64, hash string) {
	bucket, ok := c.byCreated.Get(timeBucket{at: at})
	if !ok {
		c.byCreated.ReplaceOrInsert(timeBucket{at: at, hashes: []string{hash}})
		return
	}
	bucket.hashes = append(bucket.hashes, hash)
	c.byCreated.ReplaceOrInsert(bucket)
}

// removeFromBucket removes a hash from the creation-time bucket, deleting
// the bucket when it empties. Must be called with the mutex held.
func (c *chunkIndexed) removeFromBucket(at int64, hash string) {
	bucket, ok := c.byCreated.Get(timeBucket{at: at})
	if !ok {
		return
	}
	for i, h := range bucket.hashes {
		if h == hash {
			bucket.hashes = append(bucket.hashes[:i], bucket.hashes[i+1:]...)
			break
		}
	}
	if len(bucket.hashes) == 0 {
		c.byCreated.Delete(bucket)
		return
	}
	c.byCreated.ReplaceOrInsert(bucket)
}
