package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCache_PutAndHas(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			c, err := backend.make(1000, time.Minute)
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, 0, c.Put("a", 100))
			assert.Equal(t, 0, c.Put("b", 200))

			assert.True(t, c.Has("a"))
			assert.True(t, c.Has("b"))
			assert.Equal(t, uint64(300), c.Size())
			assert.Equal(t, 2, c.Count())
			assert.Equal(t, uint64(1000), c.MaxSize())
			assert.Equal(t, time.Minute, c.TTL())
		})
	}
}

func TestChunkCache_TTLExpiry(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			clock := newFakeClock()
			c, err := backend.make(1000, time.Second, WithClock(clock.Now))
			require.NoError(t, err)
			defer c.Close()

			c.Put("a", 100)
			assert.True(t, c.Has("a"))

			clock.Advance(time.Second)
			assert.True(t, c.Has("a"), "age equal to ttl is still live")

			clock.Advance(time.Millisecond)
			// has reports expiry without removing the entry
			assert.False(t, c.Has("a"))
			assert.Equal(t, 1, c.Count())
			assert.Equal(t, uint64(100), c.Size())
		})
	}
}

func TestChunkCache_TouchExpiredDeletesAndCountsMiss(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			clock := newFakeClock()
			c, err := backend.make(1000, time.Second, WithClock(clock.Now))
			require.NoError(t, err)
			defer c.Close()

			c.Put("a", 100)
			clock.Advance(2 * time.Second)

			assert.False(t, c.Touch("a"))
			assert.Equal(t, 0, c.Count())
			assert.Equal(t, uint64(0), c.Size())

			stats := c.Stats()
			assert.Equal(t, uint64(1), stats.MissCount)
			assert.Equal(t, uint64(0), stats.HitCount)
			// expired-on-touch removal is not an eviction
			assert.Equal(t, uint64(0), stats.EvictionCount)
		})
	}
}

func TestChunkCache_TouchLiveCountsHit(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			c, err := backend.make(1000, time.Minute)
			require.NoError(t, err)
			defer c.Close()

			c.Put("a", 100)
			assert.True(t, c.Touch("a"))
			assert.False(t, c.Touch("missing"))

			stats := c.Stats()
			assert.Equal(t, uint64(1), stats.HitCount)
			assert.Equal(t, uint64(1), stats.MissCount)
		})
	}
}

func TestChunkCache_Cleanup(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			clock := newFakeClock()
			c, err := backend.make(10000, time.Second, WithClock(clock.Now))
			require.NoError(t, err)
			defer c.Close()

			c.Put("old-1", 100)
			c.Put("old-2", 100)
			clock.Advance(700 * time.Millisecond)
			c.Put("young", 100)
			clock.Advance(600 * time.Millisecond)

			// old entries are past the 1s ttl, young is not
			removed := c.Cleanup()
			assert.Equal(t, 2, removed)
			assert.Equal(t, 1, c.Count())
			assert.True(t, c.Has("young"))
			assert.Equal(t, uint64(2), c.Stats().EvictionCount)
		})
	}
}

func TestChunkCache_PutRunsCleanupFirst(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			clock := newFakeClock()
			c, err := backend.make(200, time.Second, WithClock(clock.Now))
			require.NoError(t, err)
			defer c.Close()

			c.Put("expired", 150)
			clock.Advance(2 * time.Second)

			// The expired entry is swept, not evicted, so the returned
			// count stays zero even though room had to be made.
			evicted := c.Put("fresh", 100)
			assert.Equal(t, 0, evicted)
			assert.False(t, c.Has("expired"))
			assert.True(t, c.Has("fresh"))
			assert.Equal(t, 1, c.Count())
		})
	}
}

func TestChunkCache_EvictsByInsertionOrder(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			clock := newFakeClock()
			c, err := backend.make(100, time.Hour, WithClock(clock.Now))
			require.NoError(t, err)
			defer c.Close()

			c.Put("a", 40)
			clock.Advance(time.Millisecond)
			c.Put("b", 40)
			clock.Advance(time.Millisecond)

			// Touch does not reposition: a remains the eviction candidate
			require.True(t, c.Touch("a"))
			clock.Advance(time.Millisecond)

			evicted := c.Put("c", 40)
			assert.Equal(t, 1, evicted)
			assert.False(t, c.Has("a"))
			assert.True(t, c.Has("b"))
			assert.True(t, c.Has("c"))
		})
	}
}

func TestChunkCache_BoundedSize(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			clock := newFakeClock()
			c, err := backend.make(500, time.Hour, WithClock(clock.Now))
			require.NoError(t, err)
			defer c.Close()

			for i := 0; i < 10; i++ {
				c.Put(fmt.Sprintf("chunk-%d", i), 100)
				assert.LessOrEqual(t, c.Size(), uint64(500))
				clock.Advance(time.Millisecond)
			}
		})
	}
}

func TestChunkCache_OversizeEntryRefused(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			c, err := backend.make(100, time.Minute)
			require.NoError(t, err)
			defer c.Close()

			c.Put("a", 60)
			assert.Equal(t, 0, c.Put("huge", 101))
			assert.False(t, c.Has("huge"))
			assert.True(t, c.Has("a"))
		})
	}
}

func TestChunkCache_DeleteAndClear(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			c, err := backend.make(1000, time.Minute)
			require.NoError(t, err)
			defer c.Close()

			c.Put("a", 100)
			c.Put("b", 100)

			assert.True(t, c.Delete("a"))
			assert.False(t, c.Delete("a"))
			assert.Equal(t, uint64(100), c.Size())

			c.Clear()
			assert.Equal(t, 0, c.Count())
			assert.Equal(t, uint64(0), c.Size())
		})
	}
}

func TestChunkCache_ReinsertRefreshesTTL(t *testing.T) {
	for _, backend := range chunkBackends {
		t.Run(backend.name, func(t *testing.T) {
			clock := newFakeClock()
			c, err := backend.make(1000, time.Second, WithClock(clock.Now))
			require.NoError(t, err)
			defer c.Close()

			c.Put("a", 100)
			clock.Advance(900 * time.Millisecond)
			c.Put("a", 100)
			clock.Advance(900 * time.Millisecond)

			assert.True(t, c.Has("a"))
			assert.Equal(t, uint64(100), c.Size())
		})
	}
}
