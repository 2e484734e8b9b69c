package cache

import "sync/atomic"

// Stats is an immutable snapshot of cache state and counters.
type Stats struct {
	ItemCount      int    `json:"itemCount"`
	TotalSizeBytes uint64 `json:"totalSizeBytes"`
	EvictionCount  uint64 `json:"evictionCount"`
	HitCount       uint64 `json:"hitCount"`
	MissCount      uint64 `json:"missCount"`
}

// HitRate returns hits/(hits+misses) as a ratio in [0, 1], 0 when no
// accesses have been recorded.
func (s Stats) HitRate() float64 {
	total := s.HitCount + s.MissCount
	if total == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(total)
}

// Add returns the element-wise sum of two snapshots.
func (s Stats) Add(other Stats) Stats {
	return Stats{
		ItemCount:      s.ItemCount + other.ItemCount,
		TotalSizeBytes: s.TotalSizeBytes + other.TotalSizeBytes,
		EvictionCount:  s.EvictionCount + other.EvictionCount,
		HitCount:       s.HitCount + other.HitCount,
		MissCount:      s.MissCount + other.MissCount,
	}
}

// statistics tracks live cache counters. Counters are atomic so snapshot
// reads never contend with the cache mutex.
type statistics struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func (s *statistics) hit() {
	s.hits.Add(1)
}

func (s *statistics) miss() {
	s.misses.Add(1)
}

func (s *statistics) eviction() {
	s.evictions.Add(1)
}

// snapshot combines the counters with the caller-supplied live sizes.
func (s *statistics) snapshot(itemCount int, totalSizeBytes uint64) Stats {
	return Stats{
		ItemCount:      itemCount,
		TotalSizeBytes: totalSizeBytes,
		EvictionCount:  s.evictions.Load(),
		HitCount:       s.hits.Load(),
		MissCount:      s.misses.Load(),
	}
}
