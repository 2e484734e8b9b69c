// Package config defines the configuration surface for the cachecore
// engine: cache sizing, chunk TTL, backend preference, and background
// maintenance intervals. Durations unmarshal from JSON as either duration
// strings ("5m", "30s") or integer nanoseconds.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethosengine/cachecore/errors"
)

// Config contains configuration for engine creation.
type Config struct {
	// BlobMaxSizeBytes is the byte capacity of the shared blob cache.
	BlobMaxSizeBytes uint64 `json:"blob_max_size_bytes" schema:"editable,type:int,description:Byte capacity of the shared blob cache,min:1"`

	// ReachMaxSizeBytes is the byte capacity of EACH per-reach cache.
	// Total reach-aware capacity is eight times this value.
	ReachMaxSizeBytes uint64 `json:"reach_max_size_bytes" schema:"editable,type:int,description:Byte capacity of each per-reach cache,min:1"`

	// ChunkMaxSizeBytes is the byte capacity of the chunk cache.
	ChunkMaxSizeBytes uint64 `json:"chunk_max_size_bytes" schema:"editable,type:int,description:Byte capacity of the chunk cache,min:1"`

	// ChunkTTL is the time-to-live for chunk entries.
	ChunkTTL time.Duration `json:"chunk_ttl" schema:"editable,type:string,description:Time-to-live for chunk entries"`

	// CleanupInterval is how often background cleanup sweeps expired chunks.
	// Zero disables the background sweep; cleanup still runs inline on put.
	CleanupInterval time.Duration `json:"cleanup_interval" schema:"editable,type:string,description:How often to sweep expired chunk entries"`

	// StatsInterval is how often aggregate statistics are exported to metrics.
	StatsInterval time.Duration `json:"stats_interval" schema:"editable,type:string,description:How often to export aggregate statistics"`

	// PreferIndexed selects the btree-indexed cache backend when true.
	// The engine falls back to the portable backend if indexed construction
	// fails. Selection happens once per process.
	PreferIndexed bool `json:"prefer_indexed" schema:"editable,type:bool,description:Prefer the indexed cache backend"`

	// FallbackURL is the resolver's last-resort base URL for app resolution.
	// Empty disables the fallback.
	FallbackURL string `json:"fallback_url" schema:"editable,type:string,description:Last-resort base URL for app resolution"`
}

// DefaultConfig returns a default engine configuration.
func DefaultConfig() Config {
	return Config{
		BlobMaxSizeBytes:  100 * 1024 * 1024,
		ReachMaxSizeBytes: 50 * 1024 * 1024,
		ChunkMaxSizeBytes: 1024 * 1024 * 1024,
		ChunkTTL:          5 * time.Minute,
		CleanupInterval:   1 * time.Minute,
		StatsInterval:     30 * time.Second,
		PreferIndexed:     true,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.BlobMaxSizeBytes == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"blob_max_size_bytes must be positive")
	}
	if c.ReachMaxSizeBytes == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"reach_max_size_bytes must be positive")
	}
	if c.ChunkMaxSizeBytes == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"chunk_max_size_bytes must be positive")
	}
	if c.ChunkTTL <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("chunk_ttl must be positive, got %v", c.ChunkTTL))
	}
	if c.CleanupInterval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("cleanup_interval must not be negative, got %v", c.CleanupInterval))
	}
	if c.StatsInterval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("stats_interval must not be negative, got %v", c.StatsInterval))
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Config to support
// duration strings (e.g., "1h", "5m", "30s") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion
	type Alias Config

	aux := &struct {
		ChunkTTL        json.RawMessage `json:"chunk_ttl,omitempty"`
		CleanupInterval json.RawMessage `json:"cleanup_interval,omitempty"`
		StatsInterval   json.RawMessage `json:"stats_interval,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.ChunkTTL) > 0 {
		ttl, err := parseDurationField(aux.ChunkTTL, "chunk_ttl")
		if err != nil {
			return err
		}
		c.ChunkTTL = ttl
	}

	if len(aux.CleanupInterval) > 0 {
		interval, err := parseDurationField(aux.CleanupInterval, "cleanup_interval")
		if err != nil {
			return err
		}
		c.CleanupInterval = interval
	}

	if len(aux.StatsInterval) > 0 {
		interval, err := parseDurationField(aux.StatsInterval, "stats_interval")
		if err != nil {
			return err
		}
		c.StatsInterval = interval
	}

	return nil
}

// parseDurationField parses a JSON duration field that can be either:
// - An integer (nanoseconds) for backward compatibility
// - A string (duration like "1h", "5m", "30s")
func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	// Try parsing as string first (most common case)
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid duration string for %s: %v", errors.ErrInvalidData, fieldName, err)
		}
		return duration, nil
	}

	// Fall back to integer (nanoseconds) for backward compatibility
	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("%w: field %s must be either a duration string (e.g., '1h') or integer nanoseconds",
			errors.ErrInvalidData, fieldName)
	}
	return time.Duration(nsec), nil
}
