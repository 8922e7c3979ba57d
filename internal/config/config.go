// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config filled with defaults.
// - Load layers a YAML file and ENDURANK_ environment variables on top.
// - Load and Validate failures wrap this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"
)

// Race source kinds.
const (
	SourceFile = "file"
	SourceHTTP = "http"
)

// SyncSource names one external race calendar.
type SyncSource struct {
	Name string `koanf:"name"`
	// Kind is "file" or "http".
	Kind string `koanf:"kind"`
	// Location is a file path or a feed URL.
	Location string `koanf:"location"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds the badger catalog. Empty keeps the catalog in memory.
	DataDir string `koanf:"data_dir"`

	// RedisAddr enables the category max-price cache when set.
	RedisAddr string `koanf:"redis_addr"`

	// CacheTTLSeconds bounds how long a cached category maximum is trusted.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// QueueSize bounds the in-memory race sync queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of sync workers.
	WorkerCount int `koanf:"worker_count"`

	// SimilarityThreshold is the percentage at which names are reported as similar.
	SimilarityThreshold int `koanf:"similarity_threshold"`

	// MaxListingLimit caps GET /listings?limit.
	MaxListingLimit int `koanf:"max_listing_limit"`

	// SyncSources are the race calendars pulled by POST /sync and sync-races.
	// Empty means the bundled seed calendar.
	SyncSources []SyncSource `koanf:"sync_sources"`

	// SyncRefreshDays is how old a synced race must be before it is rewritten.
	SyncRefreshDays int `koanf:"sync_refresh_days"`

	// SyncRatePerSec limits requests to each HTTP race feed.
	SyncRatePerSec float64 `koanf:"sync_rate_per_sec"`

	// GazetteerPath replaces the embedded search vocabulary when set.
	GazetteerPath string `koanf:"gazetteer_path"`

	// SeedOnStart loads the bundled race calendar when the server starts.
	SeedOnStart bool `koanf:"seed_on_start"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		CacheTTLSeconds:     600,
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		SimilarityThreshold: 85,
		MaxListingLimit:     100,
		SyncRefreshDays:     7,
		SyncRatePerSec:      1,
		SeedOnStart:         true,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SimilarityThreshold < 0 || c.SimilarityThreshold > 100:
		return fmt.Errorf("%w: similarity_threshold %d outside [0,100]", ErrInvalidConfig, c.SimilarityThreshold)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MaxListingLimit < 1:
		return fmt.Errorf("%w: max_listing_limit must be positive", ErrInvalidConfig)
	case c.SyncRefreshDays < 1:
		return fmt.Errorf("%w: sync_refresh_days must be positive", ErrInvalidConfig)
	}
	for i, s := range c.SyncSources {
		if s.Name == "" || s.Location == "" {
			return fmt.Errorf("%w: sync_sources[%d] needs a name and a location", ErrInvalidConfig, i)
		}
		if s.Kind != SourceFile && s.Kind != SourceHTTP {
			return fmt.Errorf("%w: sync_sources[%d] kind %q is not file or http", ErrInvalidConfig, i, s.Kind)
		}
	}
	return nil
}
