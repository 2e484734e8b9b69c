package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/ethosengine/cachecore/errors"
)

// blobPortable is the portable blob cache backend. It keeps recency in an
// intrusive doubly-linked list (front = most recently used) with a hash
// index for O(1) touch and evict.
type blobPortable struct {
	mu        sync.Mutex
	maxSize   uint64
	totalSize uint64
	items     map[string]*list.Element // hash -> list element holding *Entry
	order     *list.List
	stats     *statistics
	metrics   *cacheMetrics
	evictFn   EvictCallback
	now       func() time.Time
}

// NewBlob creates a portable blob cache bounded to maxSizeBytes.
// Returns an error if metrics registration fails when requested.
func NewBlob(maxSizeBytes uint64, options ...Option) (BlobCache, error) {
	opts := applyOptions(options...)

	metrics, err := opts.buildMetrics()
	if err != nil {
		return nil, errors.WrapTransient(err, "cache", "NewBlob", "metrics registration")
	}

	return &blobPortable{
		maxSize: maxSizeBytes,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   &statistics{},
		metrics: metrics,
		evictFn: opts.evictCallback,
		now:     opts.clock,
	}, nil
}

func (c *blobPortable) Put(hash string, sizeBytes uint64, reachLevel int, domain, category string, priority int) int {
	if hash == "" || sizeBytes > c.maxSize {
		return 0
	}

	var evictedEntries []Entry

	c.mu.Lock()

	// Re-insertion always lands at the most-recent position
	if element, exists := c.items[hash]; exists {
		c.removeElement(element)
	}

	// Evict oldest entries until the new one fits
	evicted := 0
	for c.totalSize+sizeBytes > c.maxSize && c.order.Len() > 0 {
		oldest := c.order.Back()
		entry := oldest.Value.(*Entry)
		if c.evictFn != nil {
			evictedEntries = append(evictedEntries, *entry)
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
		ReachLevel:     clampReach(reachLevel),
		Domain:         domain,
		Category:       category,
		Priority:       priority,
	}
	c.items[hash] = c.order.PushFront(entry)
	c.totalSize += sizeBytes

	if c.metrics != nil {
		c.metrics.updateSize(len(c.items), c.totalSize)
	}

	c.mu.Unlock()

	// Callbacks run outside the lock to prevent deadlock
	for _, e := range evictedEntries {
		c.evictFn(e.Hash, e)
	}

	return evicted
}

func (c *blobPortable) Has(hash string) bool {
	c.mu.Lock()
	_, exists := c.items[hash]
	c.mu.Unlock()
	return exists
}

func (c *blobPortable) Touch(hash string) bool {
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

	c.order.MoveToFront(element)
	entry := element.Value.(*Entry)
	entry.LastAccessedAt = c.now()
	entry.AccessCount++

	c.stats.hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return true
}

func (c *blobPortable) Delete(hash string) bool {
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

func (c *blobPortable) Metadata(hash string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[hash]
	if !exists {
		return Entry{}, false
	}
	return *element.Value.(*Entry), true
}

func (c *blobPortable) Size() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

func (c *blobPortable) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *blobPortable) MaxSize() uint64 {
	return c.maxSize
}

func (c *blobPortable) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(len(c.items), c.totalSize)
}

func (c *blobPortable) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.totalSize = 0
	if c.metrics != nil {
		c.metrics.updateSize(0, 0)
	}
}

func (c *blobPortable) Close() error {
	c.Clear()
	return nil
}

// removeElement removes an element from both the list and the index and
// adjusts size accounting. Must be called with the mutex held.
func (c *blobPortable) removeElement(element *list.Element) {
	entry := element.Value.(*Entry)
	delete(c.items, entry.Hash)
	c.order.Remove(element)
	c.totalSize -= entry.SizeBytes
}
