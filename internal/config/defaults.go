package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL         = "https://pro-api.coingecko.com/api/v3"
	DefaultAPITimeout      = 30 * time.Second
	DefaultPageSize        = 250
	DefaultStorePath       = "market_data.db"
	DefaultTopAssets       = 300
	DefaultBackfillWindow  = 365 * 24 * time.Hour
	DefaultMaxRangePerCall = 80 * 24 * time.Hour // Hourly granularity window per range call
	DefaultGracePeriod     = 2 * time.Hour
	DefaultStaleAfter      = 1 * time.Hour
	DefaultRetryCap        = 3
	DefaultBackoffBase     = 60 * time.Second
	DefaultBackoffMax      = 15 * time.Minute
)

func (c *IngestorConfig) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = DefaultPageSize
	}

	// Store defaults
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}

	// Ingest defaults
	if c.Ingest.TopAssets == 0 {
		c.Ingest.TopAssets = DefaultTopAssets
	}
	if c.Ingest.BackfillWindow == 0 {
		c.Ingest.BackfillWindow = DefaultBackfillWindow
	}
	if c.Ingest.MaxRangePerCall == 0 {
		c.Ingest.MaxRangePerCall = DefaultMaxRangePerCall
	}
	if c.Ingest.GracePeriod == 0 {
		c.Ingest.GracePeriod = DefaultGracePeriod
	}
	if c.Ingest.StaleAfter == 0 {
		c.Ingest.StaleAfter = DefaultStaleAfter
	}
	if c.Ingest.RetryCap == 0 {
		c.Ingest.RetryCap = DefaultRetryCap
	}
	if c.Ingest.BackoffBase == 0 {
		c.Ingest.BackoffBase = DefaultBackoffBase
	}
	if c.Ingest.BackoffMax == 0 {
		c.Ingest.BackoffMax = DefaultBackoffMax
	}
}
