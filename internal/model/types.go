package model

// -----------------------------------------------------------------------------
// Enums
// -----------------------------------------------------------------------------

// RunStatus is the global state of the ingestion pipeline.
type RunStatus string

const (
	RunNotStarted  RunStatus = "not_started"
	RunDiscovering RunStatus = "discovering_assets"
	RunBackfilling RunStatus = "backfilling"
	RunIncremental RunStatus = "incremental"
	RunRateLimited RunStatus = "rate_limited"
	RunComplete    RunStatus = "complete"
)

// Valid reports whether s is a known run status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunNotStarted, RunDiscovering, RunBackfilling, RunIncremental, RunRateLimited, RunComplete:
		return true
	}
	return false
}

// AssetPhase is the per-asset ingestion lifecycle phase.
//
// Phases only advance pending -> backfilling -> caught_up. failed is
// reachable from any non-terminal phase and recovers to backfilling on the
// next successful commit.
type AssetPhase string

const (
	PhasePending     AssetPhase = "pending"
	PhaseBackfilling AssetPhase = "backfilling"
	PhaseCaughtUp    AssetPhase = "caught_up"
	PhaseFailed      AssetPhase = "failed"
)

// Valid reports whether p is a known asset phase.
func (p AssetPhase) Valid() bool {
	switch p {
	case PhasePending, PhaseBackfilling, PhaseCaughtUp, PhaseFailed:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// State Types
// -----------------------------------------------------------------------------

// GlobalRunState is the singleton run-state record.
type GlobalRunState struct {
	RunID         string    // UUID of the current/last run
	Status        RunStatus // Pipeline status
	LastUpdatedAt int64     // Last transition time (s since epoch)
}

// AssetIngestionState tracks per-asset ingestion progress.
//
// LastCommittedTS is the durable checkpoint: it is monotonically
// non-decreasing across the asset's lifetime, and determines exactly where
// the next fetch resumes. Zero means no data has been committed yet.
type AssetIngestionState struct {
	AssetID          string     // Foreign key to AssetMetadata
	Phase            AssetPhase // Lifecycle phase
	EarliestNeededTS int64      // Backfill window start (s since epoch)
	LastCommittedTS  int64      // Checkpoint, 0 = nothing committed
	RetryCount       int        // Transient failures charged so far
	Terminal         bool       // Permanent failure, never retried
	LastError        string     // Most recent failure cause, "" if none
	UpdatedAt        int64      // Last mutation time (s since epoch)
}

// RankedAssetState is an AssetIngestionState joined with the asset's market
// cap rank, which drives deterministic scheduling order.
type RankedAssetState struct {
	AssetIngestionState
	Rank int
}

// -----------------------------------------------------------------------------
// Relational Types
// -----------------------------------------------------------------------------

// AssetMetadata describes one tracked asset from coins/markets.
type AssetMetadata struct {
	AssetID       string // Primary key, stable CoinGecko id (e.g. "bitcoin")
	Symbol        string // Ticker symbol (e.g. "btc")
	Name          string // Display name
	Rank          int    // Market cap rank at last discovery
	FirstSeenAt   int64  // First discovery time (s since epoch)
	LastUpdatedAt int64  // Last metadata refresh (s since epoch)
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// MarketDataPoint is one hourly observation for one asset.
// The pair (AssetID, TimestampUnix) is unique in the store.
type MarketDataPoint struct {
	AssetID       string  // Asset id
	TimestampUnix int64   // Hour-aligned observation time (s since epoch)
	PriceUSD      float64 // Spot price
	MarketCapUSD  float64 // Market capitalization
	VolumeUSD     float64 // 24h rolling volume
}
