package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/ethosengine/cachecore/errors"
)

// chunkPortable is the portable chunk cache backend. Recency is insertion
// order only: the list is never repositioned on touch, so the back of the
// list is always the oldest insertion and expiry sweeps stop at the first
// live entry.
type chunkPortable struct {
	mu        sync.Mutex
	maxSize   uint64
	totalSize uint64
	ttl       time.Duration
	items     map[string]*list.Element // hash -> list element holding *Entry
	order     *list.List               // front = newest insertion
	stats     *statistics
	metrics   *cacheMetrics
	evictFn   EvictCallback
	now       func() time.Time
}

// NewChunk creates a portable chunk cache bounded to maxSizeBytes with the
// given entry TTL. Returns an error if metrics registration fails when
// requested.
func NewChunk(maxSizeBytes uint64, ttl time.Duration, options ...Option) (ChunkCache, error) {
	opts := applyOptions(options...)

	metrics, err := opts.buildMetrics()
	if err != nil {
		return nil, errors.WrapTransient(err, "cache", "NewChunk", "metrics registration")
	}

	return &chunkPortable{
		maxSize: maxSizeBytes,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   &statistics{},
		metrics: metrics,
		evictFn: opts.evictCallback,
		now:     opts.clock,
	}, nil
}

func (c *chunkPortable) Put(hash string, sizeBytes uint64) int {
	if hash == "" || sizeBytes > c.maxSize {
		return 0
	}

	var removedEntries []Entry

	c.mu.Lock()

	if element, exists := c.items[hash]; exists {
		c.removeElement(element)
	}

	// Sweep expired entries before making room; these do not count toward
	// the returned eviction total.
	c.cleanupLocked(&removedEntries)

	evicted := 0
	for c.totalSize+sizeBytes > c.maxSize && c.order.Len() > 0 {
		oldest := c.order.Back()
		entry := oldest.Value.(*Entry)
		if c.evictFn != nil {
			removedEntries = append(removedEntries, *entry)
		}
		c.removeElement(oldest)
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
	c.items[hash] = c.order.PushFront(entry)
	c.totalSize += sizeBytes

	if c.metrics != nil {
		c.metrics.updateSize(len(c.items), c.totalSize)
	}

	c.mu.Unlock()

	for _, e := range removedEntries {
		c.evictFn(e.Hash, e)
	}

	return evicted
}

func (c *chunkPortable) Has(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[hash]
	if !exists {
		return false
	}
	// Read-only TTL check, never removes as a side effect
	return !c.expired(element.Value.(*Entry))
}

func (c *chunkPortable) Touch(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[hash]
	if !exists {
		c.stats.miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return false
	}

	entry := element.Value.(*Entry)
	if c.expired(entry) {
		c.stats.miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		c.removeElement(element)
		if c.metrics != nil {
			c.metrics.updateSize(len(c.items), c.totalSize)
		}
		return false
	}

	// No repositioning: chunk recency is insertion order
	entry.LastAccessedAt = c.now()
	entry.AccessCount++

	c.stats.hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return true
}

func (c *chunkPortable) Delete(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[hash]
	if !exists {
		return false
	}

	c.removeElement(element)
	if c.metrics != nil {
		c.metrics.updateSize(len(c.items), c.totalSize)
	}
	return true
}

func (c *chunkPortable) Cleanup() int {
	var removedEntries []Entry

	c.mu.Lock()
	cleaned := c.cleanupLocked(&removedEntries)
	if c.metrics != nil {
		c.metrics.updateSize(len(c.items), c.totalSize)
	}
	c.mu.Unlock()

	for _, e := range removedEntries {
		c.evictFn(e.Hash, e)
	}

	return cleaned
}

func (c *chunkPortable) Size() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

func (c *chunkPortable) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *chunkPortable) MaxSize() uint64 {
	return c.maxSize
}

func (c *chunkPortable) TTL() time.Duration {
	return c.ttl
}

func (c *chunkPortable) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(len(c.items), c.totalSize)
}

func (c *chunkPortable) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.totalSize = 0
	if c.metrics != nil {
		c.metrics.updateSize(0, 0)
	}
}

func (c *chunkPortable) Close() error {
	c.Clear()
	return nil
}

func (c *chunkPortable) expired(entry *Entry) bool {
	return c.now().Sub(entry.CreatedAt) > c.ttl
}

// cleanupLocked removes expired entries oldest-first, stopping at the first
// live one. O(k) where k is the number of expired entries. Must be called
// with the mutex held.
func (c *chunkPortable) cleanupLocked(removedEntries *[]Entry) int {
	cleaned := 0
	for {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*Entry)
		if !c.expired(entry) {
			break
		}
		if c.evictFn != nil {
			*removedEntries = append(*removedEntries, *entry)
		}
		c.removeElement(oldest)
		c.stats.eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
		cleaned++
	}
	return cleaned
}

// removeElement removes an element from both the list and the index and
// adjusts size accounting. Must be called with the mutex held.
func (c *chunkPortable) removeElement(element *list.Element) {
	entry := element.Value.(*Entry)
	delete(c.items, entry.Hash)
	c.order.Remove(element)
	c.totalSize -= entry.SizeBytes
}
