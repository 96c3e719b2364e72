// Package store implements the SQLite-backed state store.
//
// Record sets:
//   - run_state: singleton global run status
//   - asset_metadata: tracked assets and ranks
//   - asset_ingestion_state: per-asset progress checkpoints
//   - market_data: hourly data points, unique on (asset_id, timestamp_unix)
//   - trades: append-only trade ledger with realized P&L on sells
//   - positions: net holdings with average cost basis
//
// Every mutating operation runs in a transaction: a commit of market data and
// the matching checkpoint advance are one atomic unit, so a crash between
// fetch and commit loses at most the in-flight page. SQLite's own file
// locking enforces the single-writer assumption; WAL mode lets summary reads
// observe a consistent snapshot while the writer is active.
package store
