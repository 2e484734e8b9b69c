package cache

import (
	"fmt"
	"sync"
)

// reachAware composes eight independently bounded blob caches so pressure
// at one reach level never evicts entries at another. A domain index maps
// content domains to the hashes stored for them, pruned automatically when
// sub-caches evict.
type reachAware struct {
	caches [reachLevels]BlobCache

	mu          sync.Mutex
	domainIndex map[string][]DomainEntry
}

// NewReachAware creates a reach-aware cache backed by portable blob caches,
// each independently bounded to maxSizePerReach bytes.
func NewReachAware(maxSizePerReach uint64, options ...Option) (ReachAwareCache, error) {
	return newReachAware(maxSizePerReach, NewBlob, options...)
}

// NewReachAwareIndexed creates a reach-aware cache backed by btree-indexed
// blob caches, each independently bounded to maxSizePerReach bytes.
func NewReachAwareIndexed(maxSizePerReach uint64, options ...Option) (ReachAwareCache, error) {
	return newReachAware(maxSizePerReach, NewBlobIndexed, options...)
}

func newReachAware(
	maxSizePerReach uint64,
	construct func(uint64, ...Option) (BlobCache, error),
	options ...Option,
) (ReachAwareCache, error) {
	opts := applyOptions(options...)

	c := &reachAware{
		domainIndex: make(map[string][]DomainEntry),
	}

	for i := range c.caches {
		subOptions := []Option{
			WithClock(opts.clock),
			WithEvictionCallback(c.onEvict(opts.evictCallback)),
		}
		if opts.metricsReg != nil && opts.metricsPrefix != "" {
			// Each reach level registers under its own component label
			subOptions = append(subOptions,
				WithMetrics(opts.metricsReg, fmt.Sprintf("%s-reach-%d", opts.metricsPrefix, i)))
		}

		sub, err := construct(maxSizePerReach, subOptions...)
		if err != nil {
			return nil, err
		}
		c.caches[i] = sub
	}

	return c, nil
}

// onEvict prunes the domain index when a sub-cache evicts, then forwards to
// the caller's callback if one was configured.
func (c *reachAware) onEvict(next EvictCallback) EvictCallback {
	return func(hash string, entry Entry) {
		c.mu.Lock()
		c.removeFromDomainIndex(entry.Domain, hash)
		c.mu.Unlock()

		if next != nil {
			next(hash, entry)
		}
	}
}

func (c *reachAware) Put(hash string, sizeBytes uint64, reachLevel int, domain, category string, priority int) int {
	reach := clampReach(reachLevel)

	if hash != "" && sizeBytes <= c.caches[reach].MaxSize() {
		c.mu.Lock()
		c.upsertDomainIndex(domain, hash, reach)
		c.mu.Unlock()
	}

	return c.caches[reach].Put(hash, sizeBytes, reach, domain, category, priority)
}

func (c *reachAware) Has(hash string, reachLevel int) bool {
	return c.caches[clampReach(reachLevel)].Has(hash)
}

func (c *reachAware) Touch(hash string, reachLevel int) bool {
	return c.caches[clampReach(reachLevel)].Touch(hash)
}

func (c *reachAware) Delete(hash string, reachLevel int) bool {
	reach := clampReach(reachLevel)
	deleted := c.caches[reach].Delete(hash)

	if deleted {
		c.mu.Lock()
		for domain := range c.domainIndex {
			c.removeFromDomainIndex(domain, hash)
		}
		c.mu.Unlock()
	}

	return deleted
}

func (c *reachAware) Metadata(hash string, reachLevel int) (Entry, bool) {
	return c.caches[clampReach(reachLevel)].Metadata(hash)
}

func (c *reachAware) StatsForReach(reachLevel int) Stats {
	return c.caches[clampReach(reachLevel)].Stats()
}

func (c *reachAware) Stats() Stats {
	var total Stats
	for _, sub := range c.caches {
		total = total.Add(sub.Stats())
	}
	return total
}

func (c *reachAware) TotalCount() int {
	total := 0
	for _, sub := range c.caches {
		total += sub.Count()
	}
	return total
}

func (c *reachAware) TotalSize() uint64 {
	var total uint64
	for _, sub := range c.caches {
		total += sub.Size()
	}
	return total
}

func (c *reachAware) HashesForDomain(domain string) []DomainEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.domainIndex[domain]
	out := make([]DomainEntry, len(entries))
	copy(out, entries)
	return out
}

func (c *reachAware) Clear() {
	for _, sub := range c.caches {
		sub.Clear()
	}

	c.mu.Lock()
	c.domainIndex = make(map[string][]DomainEntry)
	c.mu.Unlock()
}

func (c *reachAware) Close() error {
	var firstErr error
	for _, sub := range c.caches {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.mu.Lock()
	c.domainIndex = make(map[string][]DomainEntry)
	c.mu.Unlock()

	return firstErr
}

// upsertDomainIndex records (hash, reach) for a domain, replacing any
// existing record for the same hash. Must be called with the mutex held.
func (c *reachAware) upsertDomainIndex(domain, hash string, reach int) {
	entries := c.domainIndex[domain]
	for i := range entries {
		if entries[i].Hash == hash {
			entries[i].ReachLevel = reach
			return
		}
	}
	c.domainIndex[domain] = append(entries, DomainEntry{Hash: hash, ReachLevel: reach})
}

// removeFromDomainIndex drops a hash from a domain's list, deleting the
// list when it empties. Must be called with the mutex held.
func (c *reachAware) removeFromDomainIndex(domain, hash string) {
	entries, exists := c.domainIndex[domain]
	if !exists {
		return
	}
	for i := range entries {
		if entries[i].Hash == hash {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(c.domainIndex, domain)
		return
	}
	c.domainIndex[domain] = entries
}
