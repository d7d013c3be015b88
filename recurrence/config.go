package recurrence

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyp0633/calrecur/internal/cache"
)

// Config holds configuration options for the Expander
type Config struct {
	// Cache configuration
	CacheEnabled bool         `yaml:"cache_enabled"`
	CacheConfig  cache.Config `yaml:"cache"`

	// MaxOccurrences caps the candidates of a single expansion; a window that
	// would produce more fails instead of being truncated.
	MaxOccurrences int `yaml:"max_occurrences"`

	// DefaultZone is the zone used by callers that have no better zone, e.g.
	// the CLI when no -tz flag is given. Empty means UTC.
	DefaultZone string `yaml:"default_zone"`
}

// DefaultConfig provides sensible defaults for production use
var DefaultConfig = Config{
	CacheEnabled:   true,
	CacheConfig:    cache.DefaultConfig,
	MaxOccurrences: 10000,
}

// HighPerformanceConfig is optimized for high-traffic scenarios
var HighPerformanceConfig = Config{
	CacheEnabled: true,
	CacheConfig: cache.Config{
		TTL:             30 * time.Minute, // Longer cache TTL
		MaxEntries:      5000,             // More cache entries
		CleanupInterval: 10 * time.Minute, // Less frequent cleanup
	},
	MaxOccurrences: 2000,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = Config{
	CacheEnabled: true,
	CacheConfig: cache.Config{
		TTL:             5 * time.Minute, // Shorter cache TTL
		MaxEntries:      100,             // Fewer cache entries
		CleanupInterval: 2 * time.Minute, // More frequent cleanup
	},
	MaxOccurrences: 1000,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = Config{
	CacheEnabled:   false,
	MaxOccurrences: 10000,
}

// LoadConfig reads a YAML configuration. Missing keys keep the values of
// DefaultConfig; durations use Go syntax ("15m").
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode recurrence config: %w", err)
	}
	if cfg.MaxOccurrences < 0 {
		return Config{}, fmt.Errorf("max_occurrences must not be negative, got %d", cfg.MaxOccurrences)
	}
	return cfg, nil
}
