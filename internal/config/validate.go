package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *IngestorConfig) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.API.PageSize < 1 {
		return errors.New("api.page_size must be >= 1")
	}

	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}

	if c.Ingest.TopAssets < 1 {
		return errors.New("ingest.top_assets must be >= 1")
	}
	if c.Ingest.BackfillWindow <= 0 {
		return errors.New("ingest.backfill_window must be positive")
	}
	if c.Ingest.MaxRangePerCall <= 0 {
		return errors.New("ingest.max_range_per_call must be positive")
	}
	if c.Ingest.GracePeriod <= 0 {
		return errors.New("ingest.grace_period must be positive")
	}
	if c.Ingest.StaleAfter <= 0 {
		return errors.New("ingest.stale_after must be positive")
	}
	if c.Ingest.RetryCap < 1 {
		return errors.New("ingest.retry_cap must be >= 1")
	}
	if c.Ingest.BackoffBase <= 0 {
		return errors.New("ingest.backoff_base must be positive")
	}
	if c.Ingest.BackoffMax < c.Ingest.BackoffBase {
		return fmt.Errorf("ingest.backoff_max (%v) cannot be below backoff_base (%v)",
			c.Ingest.BackoffMax, c.Ingest.BackoffBase)
	}

	return nil
}
