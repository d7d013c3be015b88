package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	input := `
cache_enabled: true
cache:
  ttl: 30m
  max_entries: 50
  cleanup_interval: 1m
max_occurrences: 500
default_zone: Europe/Berlin
`
	cfg, err := LoadConfig(strings.NewReader(input))
	require.NoError(t, err)

	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 30*time.Minute, cfg.CacheConfig.TTL)
	assert.Equal(t, 50, cfg.CacheConfig.MaxEntries)
	assert.Equal(t, time.Minute, cfg.CacheConfig.CleanupInterval)
	assert.Equal(t, 500, cfg.MaxOccurrences)
	assert.Equal(t, "Europe/Berlin", cfg.DefaultZone)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig, cfg)

	cfg, err = LoadConfig(strings.NewReader("max_occurrences: 42\n"))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.MaxOccurrences)
	assert.Equal(t, DefaultConfig.CacheConfig, cfg.CacheConfig)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown key", "cache_size: 10\n"},
		{"bad duration", "cache:\n  ttl: soon\n"},
		{"negative limit", "max_occurrences: -1\n"},
		{"not a mapping", "- a\n- b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestConfigPresets(t *testing.T) {
	presets := map[string]Config{
		"default":          DefaultConfig,
		"high performance": HighPerformanceConfig,
		"low memory":       LowMemoryConfig,
		"disabled cache":   DisabledCacheConfig,
	}

	for name, cfg := range presets {
		t.Run(name, func(t *testing.T) {
			assert.Positive(t, cfg.MaxOccurrences)
			if cfg.CacheEnabled {
				assert.Positive(t, cfg.CacheConfig.MaxEntries)
				assert.Positive(t, cfg.CacheConfig.TTL)
			}

			e := NewExpander(WithConfig(cfg))
			defer e.Close()
			assert.Contains(t, e.String(), "maxOccurrences")
		})
	}

	assert.Less(t, LowMemoryConfig.CacheConfig.MaxEntries, DefaultConfig.CacheConfig.MaxEntries)
	assert.Greater(t, HighPerformanceConfig.CacheConfig.MaxEntries, DefaultConfig.CacheConfig.MaxEntries)
}
