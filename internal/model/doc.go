// Package model defines shared data types used across the ingestor.
//
// Record sets (mirrored by the SQLite schema in internal/store):
//   - asset_metadata: tracked coins and their market cap rank
//   - asset_ingestion_state: per-asset progress checkpoints
//   - run_state: singleton global run status
//   - market_data: hourly price/cap/volume points
//   - trades: append-only trade ledger (buys and sells)
//   - positions: net holdings with average cost basis
//
// Conventions:
//   - Timestamps: int64 seconds since Unix epoch
//   - MarketDataPoint timestamps are hour-aligned
//   - IDs: CoinGecko coin ids (e.g. "bitcoin"), uuid.UUID for run IDs
package model
