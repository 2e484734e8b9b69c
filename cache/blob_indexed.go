package cache

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/ethosengine/cachecore/errors"
)

// timeBucket groups the hashes that share one recency timestamp. Hashes
// within a bucket are ordered oldest-first by append order.
type timeBucket struct {
	at     int64 // unix nanoseconds
	hashes []string
}

func bucketLess(a, b timeBucket) bool {
	return a.at < b.at
}

// blobIndexed is the indexed blob cache backend. Recency lives in a btree
// of time buckets, giving O(log n) touch and eviction with a hash index
// for O(1) lookup.
type blobIndexed struct {
	mu        sync.Mutex
	maxSize   uint64
	totalSize uint64
	entries   map[string]*Entry
	byTime    *btree.BTreeG[timeBucket]
	stats     *statistics
	metrics   *cacheMetrics
	evictFn   EvictCallback
	now       func() time.Time
}

// NewBlobIndexed creates a btree-indexed blob cache bounded to maxSizeBytes.
// Returns an error if metrics registration fails when requested.
func NewBlobIndexed(maxSizeBytes uint64, options ...Option) (BlobCache, error) {
	opts := applyOptions(options...)

	metrics, err := opts.buildMetrics()
	if err != nil {
		return nil, errors.WrapTransient(err, "cache", "NewBlobIndexed", "metrics registration")
	}

	return &blobIndexed{
		maxSize: maxSizeBytes,
		entries: make(map[string]*Entry),
		byTime:  btree.NewG(32, bucketLess),
		stats:   &statistics{},
		metrics: metrics,
		evictFn: opts.evictCallback,
		now:     opts.clock,
	}, nil
}

func (c *blobIndexed) Put(hash string, sizeBytes uint64, reachLevel int, domain, category string, priority int) int {
	if hash == "" || sizeBytes > c.maxSize {
		return 0
	}

	var evictedEntries []Entry

	c.mu.Lock()

	if existing, exists := c.entries[hash]; exists {
		c.removeEntry(existing)
	}

	evicted := 0
	for c.totalSize+sizeBytes > c.maxSize && len(c.entries) > 0 {
		victim := c.oldestEntry()
		if victim == nil {
			break
		}
		if c.evictFn != nil {
			evictedEntries = append(evictedEntries, *victim)
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
		ReachLevel:     clampReach(reachLevel),
		Domain:         domain,
		Category:       category,
		Priority:       priority,
	}
	c.entries[hash] = entry
	c.totalSize += sizeBytes
	c.addToBucket(now.UnixNano(), hash)

	if c.metrics != nil {
		c.metrics.updateSize(len(c.entries), c.totalSize)
	}

	c.mu.Unlock()

	for _, e := range evictedEntries {
		c.evictFn(e.Hash, e)
	}

	return evicted
}

func (c *blobIndexed) Has(hash string) bool {
	c.mu.Lock()
	_, exists := c.entries[hash]
	c.mu.Unlock()
	return exists
}

func (c *blobIndexed) Touch(hash string) bool {
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

	now := c.now()
	c.removeFromBucket(entry.LastAccessedAt.UnixNano(), hash)
	c.addToBucket(now.UnixNano(), hash)
	entry.LastAccessedAt = now
	entry.AccessCount++

	c.stats.hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return true
}

func (c *blobIndexed) Delete(hash string) bool {
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

func (c *blobIndexed) Metadata(hash string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[hash]
	if !exists {
		return Entry{}, false
	}
	return *entry, true
}

func (c *blobIndexed) Size() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

func (c *blobIndexed) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *blobIndexed) MaxSize() uint64 {
	return c.maxSize
}

func (c *blobIndexed) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(len(c.entries), c.totalSize)
}

func (c *blobIndexed) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.byTime.Clear(false)
	c.totalSize = 0
	if c.metrics != nil {
		c.metrics.updateSize(0, 0)
	}
}

func (c *blobIndexed) Close() error {
	c.Clear()
	return nil
}

// oldestEntry returns the least recently used entry. Must be called with
// the mutex held.
func (c *blobIndexed) oldestEntry() *Entry {
	bucket, ok := c.byTime.Min()
	if !ok || len(bucket.hashes) == 0 {
		return nil
	}
	return c.entries[bucket.hashes[0]]
}

// removeEntry removes an entry from both indices and adjusts size
// accounting. Must be called with the mutex held.
func (c *blobIndexed) removeEntry(entry *Entry) {
	delete(c.entries, entry.Hash)
	c.totalSize -= entry.SizeBytes
	c.removeFromBucket(entry.LastAccessedAt.UnixNano(), entry.Hash)
}

// addToBucket appends a hash to the bucket at the given timestamp,
// creating the bucket if needed. Must be called with the mutex held.
func (c *blobIndexed) addToBucket(at int64, hash string) {
	bucket, ok := c.byTime.Get(timeBucket{at: at})
	if !ok {
		c.byTime.ReplaceOrInsert(timeBucket{at: at, hashes: []string{hash}})
		return
	}
	bucket.hashes = append(bucket.hashes, hash)
	c.byTime.ReplaceOrInsert(bucket)
}

// removeFromBucket removes a hash from the bucket at the given timestamp,
// deleting the bucket when it empties. Must be called with the mutex held.
func (c *blobIndexed) removeFromBucket(at int64, hash string) {
	bucket, ok := c.byTime.Get(timeBucket{at: at})
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
		c.byTime.Delete(bucket)
		return
	}
	c.byTime.ReplaceOrInsert(bucket)
}
