package cache

import (
	"sync"
	"time"
)

// fakeClock is a manually advanced time source for deterministic recency
// and TTL tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// blobBackends lists every blob cache constructor; contract tests run
// against each one.
var blobBackends = []struct {
	name string
	make func(maxSizeBytes uint64, options ...Option) (BlobCache, error)
}{
	{"portable", NewBlob},
	{"indexed", NewBlobIndexed},
}

// chunkBackends lists every chunk cache constructor.
var chunkBackends = []struct {
	name string
	make func(maxSizeBytes uint64, ttl time.Duration, options ...Option) (ChunkCache, error)
}{
	{"portable", NewChunk},
	{"indexed", NewChunkIndexed},
}

// reachBackends lists every reach-aware cache constructor.
var reachBackends = []struct {
	name string
	make func(maxSizePerReach uint64, options ...Option) (ReachAwareCache, error)
}{
	{"portable", NewReachAware},
	{"indexed", NewReachAwareIndexed},
}
