package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

// Store is the embedded transactional state store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	return &Store{db: db}, nil
}

// InitSchema creates all record sets if absent. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS run_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			run_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'not_started',
			last_updated_at INTEGER NOT NULL DEFAULT 0
		);`,
		`INSERT INTO run_state (id)
		 SELECT 1 WHERE NOT EXISTS (SELECT 1 FROM run_state WHERE id = 1);`,
		`CREATE TABLE IF NOT EXISTS asset_metadata (
			asset_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			name TEXT NOT NULL,
			rank INTEGER NOT NULL,
			first_seen_at INTEGER NOT NULL,
			last_updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_asset_metadata_rank ON asset_metadata(rank);`,
		`CREATE TABLE IF NOT EXISTS asset_ingestion_state (
			asset_id TEXT PRIMARY KEY REFERENCES asset_metadata(asset_id),
			phase TEXT NOT NULL DEFAULT 'pending',
			earliest_needed_ts INTEGER NOT NULL,
			last_committed_ts INTEGER NOT NULL DEFAULT 0,
			retry_count INTEGER NOT NULL DEFAULT 0,
			terminal INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS market_data (
			asset_id TEXT NOT NULL,
			timestamp_unix INTEGER NOT NULL,
			price_usd REAL NOT NULL,
			market_cap_usd REAL NOT NULL,
			volume_usd REAL NOT NULL,
			ingested_at INTEGER NOT NULL,
			PRIMARY KEY (asset_id, timestamp_unix)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_market_data_ts ON market_data(timestamp_unix);`,
		`CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			asset_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			price_usd REAL NOT NULL,
			trade_value_usd REAL NOT NULL,
			executed_at INTEGER NOT NULL,
			fees_usd REAL NOT NULL DEFAULT 0,
			realized_pnl_usd REAL NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_asset ON trades(asset_id);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_executed ON trades(executed_at);`,
		`CREATE TABLE IF NOT EXISTS positions (
			asset_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			quantity REAL NOT NULL DEFAULT 0,
			avg_cost_basis_usd REAL NOT NULL DEFAULT 0,
			opened_at INTEGER NOT NULL,
			last_updated_at INTEGER NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
