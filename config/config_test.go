package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethosengine/cachecore/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, uint64(100*1024*1024), cfg.BlobMaxSizeBytes)
	assert.Equal(t, uint64(50*1024*1024), cfg.ReachMaxSizeBytes)
	assert.Equal(t, uint64(1024*1024*1024), cfg.ChunkMaxSizeBytes)
	assert.Equal(t, 5*time.Minute, cfg.ChunkTTL)
	assert.Equal(t, 1*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 30*time.Second, cfg.StatsInterval)
	assert.True(t, cfg.PreferIndexed)
	assert.Empty(t, cfg.FallbackURL)

	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default",
			modify: func(c *Config) {},
		},
		{
			name:    "zero blob capacity",
			modify:  func(c *Config) { c.BlobMaxSizeBytes = 0 },
			wantErr: "blob_max_size_bytes",
		},
		{
			name:    "zero reach capacity",
			modify:  func(c *Config) { c.ReachMaxSizeBytes = 0 },
			wantErr: "reach_max_size_bytes",
		},
		{
			name:    "zero chunk capacity",
			modify:  func(c *Config) { c.ChunkMaxSizeBytes = 0 },
			wantErr: "chunk_max_size_bytes",
		},
		{
			name:    "zero chunk ttl",
			modify:  func(c *Config) { c.ChunkTTL = 0 },
			wantErr: "chunk_ttl",
		},
		{
			name:    "negative cleanup interval",
			modify:  func(c *Config) { c.CleanupInterval = -time.Second },
			wantErr: "cleanup_interval",
		},
		{
			name:    "negative stats interval",
			modify:  func(c *Config) { c.StatsInterval = -time.Second },
			wantErr: "stats_interval",
		},
		{
			name:   "zero cleanup interval disables sweep",
			modify: func(c *Config) { c.CleanupInterval = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfigUnmarshalJSON_DurationStrings(t *testing.T) {
	data := []byte(`{
		"blob_max_size_bytes": 1048576,
		"reach_max_size_bytes": 524288,
		"chunk_ttl": "2m",
		"cleanup_interval": "30s",
		"stats_interval": "10s",
		"prefer_indexed": false,
		"fallback_url": "https://fallback.example.com"
	}`)

	var cfg Config
	require.NoError(t, json.Unmarshal(data, &cfg))

	assert.Equal(t, uint64(1048576), cfg.BlobMaxSizeBytes)
	assert.Equal(t, uint64(524288), cfg.ReachMaxSizeBytes)
	assert.Equal(t, 2*time.Minute, cfg.ChunkTTL)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Equal(t, 10*time.Second, cfg.StatsInterval)
	assert.False(t, cfg.PreferIndexed)
	assert.Equal(t, "https://fallback.example.com", cfg.FallbackURL)
}

func TestConfigUnmarshalJSON_NanosecondIntegers(t *testing.T) {
	data := []byte(`{
		"blob_max_size_bytes": 1,
		"reach_max_size_bytes": 1,
		"chunk_ttl": 300000000000,
		"cleanup_interval": 60000000000
	}`)

	var cfg Config
	require.NoError(t, json.Unmarshal(data, &cfg))

	assert.Equal(t, 5*time.Minute, cfg.ChunkTTL)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
}

func TestConfigUnmarshalJSON_InvalidDuration(t *testing.T) {
	data := []byte(`{"chunk_ttl": "not-a-duration"}`)

	var cfg Config
	err := json.Unmarshal(data, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_ttl")
	assert.True(t, errors.IsInvalid(err))

	// Wrong-typed fields classify the same way
	err = json.Unmarshal([]byte(`{"cleanup_interval": true}`), &cfg)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
