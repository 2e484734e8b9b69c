// Package resolver chooses which registered content source should serve a
// piece of content and learns from recorded successes. Sources are ordered
// by tier, then priority; a content location index remembers where each
// content id was last found so repeated resolutions prefer sources that
// already served it.
//
// Resolution failure is data, not an error: Resolve returns a *NoSource
// the caller must branch on. The resolver performs no I/O itself.
package resolver

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ethosengine/cachecore/metric"
)

// Tier is the coarse rank of a content source by expected latency and
// durability. Lower values are tried first.
type Tier uint8

const (
	// TierLocal is on-device storage, fastest and offline-capable.
	TierLocal Tier = 0
	// TierProjection is a fast, eventually consistent network cache.
	TierProjection Tier = 1
	// TierAuthoritative is the slow source of truth.
	TierAuthoritative Tier = 2
	// TierExternal is a last-resort fallback outside the network.
	TierExternal Tier = 3
)

// String returns the string representation of Tier.
func (t Tier) String() string {
	switch t {
	case TierLocal:
		return "local"
	case TierProjection:
		return "projection"
	case TierAuthoritative:
		return "authoritative"
	case TierExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Resolution tells the caller which source to try for a piece of content.
type Resolution struct {
	SourceID string `json:"sourceId"`
	Tier     uint8  `json:"tier"`
	URL      string `json:"url,omitempty"`
	Cached   bool   `json:"cached"`
}

// NoSource is the structured outcome when no registered source can serve
// a content type. It is returned as data, never as an error.
type NoSource struct {
	Error       string `json:"error"`
	ContentType string `json:"contentType"`
	ContentID   string `json:"contentId"`
}

// SourceInfo describes one source in a resolution chain.
type SourceInfo struct {
	ID       string `json:"id"`
	Tier     uint8  `json:"tier"`
	Priority int    `json:"priority"`
	URL      string `json:"url,omitempty"`
}

// Stats is a snapshot of resolver counters.
type Stats struct {
	ResolutionCount     uint64  `json:"resolutionCount"`
	CacheHitCount       uint64  `json:"cacheHitCount"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	SourceCount         int     `json:"sourceCount"`
	IndexedContentCount int     `json:"indexedContentCount"`
	RegisteredAppCount  int     `json:"registeredAppCount"`
}

// source is a registered content source.
type source struct {
	id           string
	tier         Tier
	priority     int
	contentTypes map[string]struct{}
	available    bool
	baseURL      string
	registered   int // registration sequence, tie-break for equal tier and priority
}

func (s *source) supports(contentType string) bool {
	_, ok := s.contentTypes[contentType]
	return ok
}

// location records that a content id was found at a source.
type location struct {
	sourceID string
	lastSeen time.Time
}

// Resolver is the tiered content resolution engine. All methods are safe
// for concurrent use; racing updates apply last-write-wins.
type Resolver struct {
	mu           sync.Mutex
	sources      []*source
	contentIndex map[string][]location
	apps         map[string]appRegistration
	nextSeq      int

	resolutionCount uint64
	cacheHitCount   uint64

	fallbackURL string
	logger      *slog.Logger
	metrics     *metric.Metrics
	now         func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's structured logger. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics exposes resolver counters through the engine metrics
// registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(r *Resolver) {
		if registry != nil {
			r.metrics = registry.CoreMetrics()
		}
	}
}

// WithFallbackURL sets a last-resort base URL used for app resolution when
// no app-capable source and no per-app fallback is available.
func WithFallbackURL(url string) Option {
	return func(r *Resolver) {
		r.fallbackURL = url
	}
}

// WithClock overrides the resolver's time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// New creates an empty content resolver.
func New(options ...Option) *Resolver {
	r := &Resolver{
		contentIndex: make(map[string][]location),
		apps:         make(map[string]appRegistration),
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RegisterSource registers or replaces a content source. Priority is
// clamped to [0, 100]. Re-registering an id replaces it in place, keeping
// its original position for tie-breaking among equal tier and priority.
func (r *Resolver) RegisterSource(id string, tier Tier, priority int, contentTypes []string, baseURL string) {
	if priority < 0 {
		priority = 0
	}
	if priority > 100 {
		priority = 100
	}

	types := make(map[string]struct{}, len(contentTypes))
	for _, t := range contentTypes {
		types[t] = struct{}{}
	}

	r.mu.Lock()

	replaced := false
	for _, s := range r.sources {
		if s.id == id {
			s.tier = tier
			s.priority = priority
			s.contentTypes = types
			s.available = true
			s.baseURL = baseURL
			replaced = true
			break
		}
	}
	if !replaced {
		r.sources = append(r.sources, &source{
			id:           id,
			tier:         tier,
			priority:     priority,
			contentTypes: types,
			available:    true,
			baseURL:      baseURL,
			registered:   r.nextSeq,
		})
		r.nextSeq++
	}

	// Registration sequence breaks ties for equal (tier, priority)
	sort.Slice(r.sources, func(i, j int) bool {
		a, b := r.sources[i], r.sources[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		return a.registered < b.registered
	})

	sourceCount := len(r.sources)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordSourceCount(sourceCount)
	}
	r.logger.Debug("content source registered",
		"source_id", id, "tier", tier.String(), "priority", priority)
}

// SetSourceURL updates a source's base URL. An empty string clears it.
// No-op if the id is unknown.
func (r *Resolver) SetSourceURL(sourceID, baseURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sources {
		if s.id == sourceID {
			s.baseURL = baseURL
			return
		}
	}
}

// SetSourceAvailable marks a source available or unavailable. Unavailable
// sources are skipped during resolution. No-op if the id is unknown.
func (r *Resolver) SetSourceAvailable(sourceID string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sources {
		if s.id == sourceID {
			s.available = available
			return
		}
	}
}

// IsSourceAvailable reports whether a source is registered and available.
func (r *Resolver) IsSourceAvailable(sourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sources {
		if s.id == sourceID {
			return s.available
		}
	}
	return false
}

// RecordContentLocation records that content was successfully found at a
// source, refreshing the timestamp when the pair already exists. The
// source id is not validated against the registry.
func (r *Resolver) RecordContentLocation(contentID, sourceID string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	locations := r.contentIndex[contentID]
	for i := range locations {
		if locations[i].sourceID == sourceID {
			locations[i].lastSeen = now
			return
		}
	}
	r.contentIndex[contentID] = append(locations, location{sourceID: sourceID, lastSeen: now})

	if r.metrics != nil {
		r.metrics.RecordIndexedContent(len(r.contentIndex))
	}
}

// RemoveContentLocation removes one recorded location, deleting the content
// id's index entry entirely when its last location goes.
func (r *Resolver) RemoveContentLocation(contentID, sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	locations, exists := r.contentIndex[contentID]
	if !exists {
		return
	}
	for i := range locations {
		if locations[i].sourceID == sourceID {
			locations = append(locations[:i], locations[i+1:]...)
			break
		}
	}
	if len(locations) == 0 {
		delete(r.contentIndex, contentID)
	} else {
		r.contentIndex[contentID] = locations
	}
}

// ClearSourceLocations removes every recorded location for a source, for
// example after its cache is cleared.
func (r *Resolver) ClearSourceLocations(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for contentID, locations := range r.contentIndex {
		kept := locations[:0]
		for _, loc := range locations {
			if loc.sourceID != sourceID {
				kept = append(kept, loc)
			}
		}
		if len(kept) == 0 {
			delete(r.contentIndex, contentID)
		} else {
			r.contentIndex[contentID] = kept
		}
	}
}

// Resolve chooses the source to try for a piece of content. Recorded
// locations are preferred most-recent-first; otherwise the globally ordered
// source list is scanned for the first available source supporting the
// content type. A nil *NoSource means the Resolution is valid.
func (r *Resolver) Resolve(contentType, contentID string) (Resolution, *NoSource) {
	if r.metrics != nil {
		start := time.Now()
		defer func() {
			r.metrics.RecordResolutionDuration(contentType, time.Since(start))
		}()
	}

	r.mu.Lock()

	r.resolutionCount++

	// 1. Prefer sources that already served this content id
	if locations, exists := r.contentIndex[contentID]; exists {
		sorted := make([]location, len(locations))
		copy(sorted, locations)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].lastSeen.After(sorted[j].lastSeen)
		})

		for _, loc := range sorted {
			if s := r.findAvailable(loc.sourceID); s != nil {
				r.cacheHitCount++
				result := r.buildResolution(s, contentType, contentID, true)
				r.mu.Unlock()
				r.recordOutcome(contentType, "cached")
				return result, nil
			}
		}
	}

	// 2. First available source supporting this content type
	for _, s := range r.sources {
		if s.available && s.supports(contentType) {
			result := r.buildResolution(s, contentType, contentID, false)
			r.mu.Unlock()
			r.recordOutcome(contentType, "resolved")
			return result, nil
		}
	}

	r.mu.Unlock()
	r.recordOutcome(contentType, "no_source")
	return Resolution{}, &NoSource{
		Error:       "no_source_available",
		ContentType: contentType,
		ContentID:   contentID,
	}
}

// ResolutionChain returns the ordered list of currently available sources
// supporting a content type, for diagnostics.
func (r *Resolver) ResolutionChain(contentType string) []SourceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain := make([]SourceInfo, 0, len(r.sources))
	for _, s := range r.sources {
		if s.available && s.supports(contentType) {
			chain = append(chain, SourceInfo{
				ID:       s.id,
				Tier:     uint8(s.tier),
				Priority: s.priority,
				URL:      s.baseURL,
			})
		}
	}
	return chain
}

// Stats returns a snapshot of resolver counters. The hit rate is a ratio
// of cached resolutions to all resolutions, in [0, 1].
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	rate := 0.0
	if r.resolutionCount > 0 {
		rate = float64(r.cacheHitCount) / float64(r.resolutionCount)
	}
	return Stats{
		ResolutionCount:     r.resolutionCount,
		CacheHitCount:       r.cacheHitCount,
		CacheHitRate:        rate,
		SourceCount:         len(r.sources),
		IndexedContentCount: len(r.contentIndex),
		RegisteredAppCount:  len(r.apps),
	}
}

// ResetStats zeroes the resolution and hit counters.
func (r *Resolver) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutionCount = 0
	r.cacheHitCount = 0
}

// SourceCount returns the number of registered sources.
func (r *Resolver) SourceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

// IndexedContentCount returns the number of content ids with known
// locations.
func (r *Resolver) IndexedContentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contentIndex)
}

// Close releases resolver resources.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = nil
	r.contentIndex = make(map[string][]location)
	r.apps = make(map[string]appRegistration)
	return nil
}

// findAvailable returns the registered, available source with the given
// id. Must be called with the mutex held.
func (r *Resolver) findAvailable(sourceID string) *source {
	for _, s := range r.sources {
		if s.id == sourceID && s.available {
			return s
		}
	}
	return nil
}

// buildResolution constructs the caller-facing result, deriving a URL for
// URL-based sources. Must be called with the mutex held.
func (r *Resolver) buildResolution(s *source, contentType, contentID string, cached bool) Resolution {
	url := ""
	if s.baseURL != "" {
		switch contentType {
		case "app":
			url = fmt.Sprintf("%s/apps/%s", s.baseURL, contentID)
		case "blob":
			url = fmt.Sprintf("%s/store/%s", s.baseURL, contentID)
		case "stream":
			url = fmt.Sprintf("%s/stream/%s", s.baseURL, contentID)
		default:
			url = fmt.Sprintf("%s/api/v1/%s/%s", s.baseURL, contentType, contentID)
		}
	}
	return Resolution{
		SourceID: s.id,
		Tier:     uint8(s.tier),
		URL:      url,
		Cached:   cached,
	}
}

func (r *Resolver) recordOutcome(contentType, outcome string) {
	if r.metrics != nil {
		r.metrics.RecordResolution(contentType, outcome)
	}
}
