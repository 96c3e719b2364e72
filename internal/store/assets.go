package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmorrell/coingecko-data/internal/model"
)

// UpsertAssetMetadata inserts or refreshes asset metadata keyed by asset_id.
// Re-discovery never duplicates assets; first_seen_at survives updates.
func (s *Store) UpsertAssetMetadata(ctx context.Context, assets []model.AssetMetadata) error {
	if len(assets) == 0 {
		return nil
	}

	now := time.Now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO asset_metadata (asset_id, symbol, name, rank, first_seen_at, last_updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (asset_id) DO UPDATE SET
				symbol = excluded.symbol,
				name = excluded.name,
				rank = excluded.rank,
				last_updated_at = excluded.last_updated_at
		`)
		if err != nil {
			return fmt.Errorf("prepare metadata upsert: %w", err)
		}
		defer stmt.Close()

		for _, a := range assets {
			if _, err := stmt.ExecContext(ctx, a.AssetID, a.Symbol, a.Name, a.Rank, now, now); err != nil {
				return fmt.Errorf("upsert asset %s: %w", a.AssetID, err)
			}
		}
		return nil
	})
}

// SeedAssetProgress creates pending progress rows for any asset not already
// tracked. Already-tracked assets are untouched: seeding never resets
// existing progress.
func (s *Store) SeedAssetProgress(ctx context.Context, assetIDs []string, earliestNeededTS int64) error {
	if len(assetIDs) == 0 {
		return nil
	}

	now := time.Now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO asset_ingestion_state (asset_id, phase, earliest_needed_ts, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (asset_id) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("prepare progress seed: %w", err)
		}
		defer stmt.Close()

		for _, id := range assetIDs {
			if _, err := stmt.ExecContext(ctx, id, string(model.PhasePending), earliestNeededTS, now); err != nil {
				return fmt.Errorf("seed asset %s: %w", id, err)
			}
		}
		return nil
	})
}

// ReactivateStale moves caught_up assets whose checkpoint is older than
// now-threshold back to backfilling, so a new run re-collects the hours that
// accrued since the last one.
func (s *Store) ReactivateStale(ctx context.Context, now int64, threshold time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE asset_ingestion_state
		SET phase = ?, updated_at = ?
		WHERE phase = ? AND last_committed_ts < ?
	`, string(model.PhaseBackfilling), now, string(model.PhaseCaughtUp), now-int64(threshold.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("reactivate stale assets: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reactivate stale assets: %w", err)
	}
	return int(n), nil
}
