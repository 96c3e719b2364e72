package config

import "time"

// IngestorConfig is the root configuration for an ingestor process.
type IngestorConfig struct {
	API    APIConfig    `yaml:"api"`
	Store  StoreConfig  `yaml:"store"`
	Ingest IngestConfig `yaml:"ingest"`
}

// APIConfig holds CoinGecko API settings.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"` // Optional; empty uses the unauthenticated tier
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"` // per_page for coins/markets pagination
}

// StoreConfig holds the embedded SQLite store settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig holds orchestration settings.
type IngestConfig struct {
	TopAssets       int           `yaml:"top_assets"`         // Number of top-ranked assets to track
	BackfillWindow  time.Duration `yaml:"backfill_window"`    // History collected per asset
	MaxRangePerCall time.Duration `yaml:"max_range_per_call"` // Widest window per market_chart call
	GracePeriod     time.Duration `yaml:"grace_period"`       // Distance from now that counts as caught up
	StaleAfter      time.Duration `yaml:"stale_after"`        // Caught-up assets older than this are re-collected
	RetryCap        int           `yaml:"retry_cap"`          // Transient failures allowed per asset
	BackoffBase     time.Duration `yaml:"backoff_base"`       // First rate-limit sleep
	BackoffMax      time.Duration `yaml:"backoff_max"`        // Sleep ceiling
}
