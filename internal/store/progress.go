package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmorrell/coingecko-data/internal/model"
)

// CommitMarketData upserts the given points keyed by (asset_id,
// timestamp_unix) and, in the same transaction, advances the asset's
// checkpoint to max(current, max(points)). A pending or failed asset with a
// non-empty commit moves to backfilling. Committing the same points twice
// yields the same rows and the same checkpoint as committing once.
func (s *Store) CommitMarketData(ctx context.Context, assetID string, points []model.MarketDataPoint) error {
	if len(points) == 0 {
		return nil
	}

	var maxTS int64
	for _, dp := range points {
		if dp.TimestampUnix > maxTS {
			maxTS = dp.TimestampUnix
		}
	}

	now := time.Now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO market_data (asset_id, timestamp_unix, price_usd, market_cap_usd, volume_usd, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (asset_id, timestamp_unix) DO UPDATE SET
				price_usd = excluded.price_usd,
				market_cap_usd = excluded.market_cap_usd,
				volume_usd = excluded.volume_usd,
				ingested_at = excluded.ingested_at
		`)
		if err != nil {
			return fmt.Errorf("prepare point upsert: %w", err)
		}
		defer stmt.Close()

		for _, dp := range points {
			if _, err := stmt.ExecContext(ctx, assetID, dp.TimestampUnix,
				dp.PriceUSD, dp.MarketCapUSD, dp.VolumeUSD, now); err != nil {
				return fmt.Errorf("upsert point %s@%d: %w", assetID, dp.TimestampUnix, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE asset_ingestion_state
			SET last_committed_ts = MAX(last_committed_ts, ?),
			    phase = CASE WHEN phase IN (?, ?) THEN ? ELSE phase END,
			    last_error = '',
			    updated_at = ?
			WHERE asset_id = ?
		`, maxTS, string(model.PhasePending), string(model.PhaseFailed),
			string(model.PhaseBackfilling), now, assetID)
		if err != nil {
			return fmt.Errorf("advance checkpoint %s: %w", assetID, err)
		}
		return nil
	})
}

// AdvanceCheckpoint bumps the asset's checkpoint to max(current, throughTS)
// without writing any points. Used when an upstream window legitimately
// contains no data (asset younger than the backfill window), so the fetch
// cursor still makes monotonic progress.
func (s *Store) AdvanceCheckpoint(ctx context.Context, assetID string, throughTS int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE asset_ingestion_state
		SET last_committed_ts = MAX(last_committed_ts, ?),
		    phase = CASE WHEN phase IN (?, ?) THEN ? ELSE phase END,
		    updated_at = ?
		WHERE asset_id = ?
	`, throughTS, string(model.PhasePending), string(model.PhaseFailed),
		string(model.PhaseBackfilling), time.Now().Unix(), assetID)
	if err != nil {
		return fmt.Errorf("advance checkpoint %s: %w", assetID, err)
	}
	return nil
}

// MarkCaughtUp sets the asset's phase to caught_up. The caller is
// responsible for only doing so when the checkpoint is within one fetch
// window of now.
func (s *Store) MarkCaughtUp(ctx context.Context, assetID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE asset_ingestion_state
		SET phase = ?, last_error = '', updated_at = ?
		WHERE asset_id = ?
	`, string(model.PhaseCaughtUp), time.Now().Unix(), assetID)
	if err != nil {
		return fmt.Errorf("mark caught up %s: %w", assetID, err)
	}
	return nil
}

// MarkFailed records a failure for the asset, preserving its checkpoint.
// Non-terminal failures increment retry_count and remain schedulable below
// the retry cap; terminal failures are never retried.
func (s *Store) MarkFailed(ctx context.Context, assetID, cause string, terminal bool) error {
	increment := 1
	if terminal {
		increment = 0
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE asset_ingestion_state
		SET phase = ?,
		    retry_count = retry_count + ?,
		    terminal = CASE WHEN ? THEN 1 ELSE terminal END,
		    last_error = ?,
		    updated_at = ?
		WHERE asset_id = ?
	`, string(model.PhaseFailed), increment, terminal, cause, time.Now().Unix(), assetID)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", assetID, err)
	}
	return nil
}

// NextPendingOrResumable returns the next asset to work on, in ascending
// rank then asset_id order: pending, backfilling, or failed below the retry
// cap and not terminal. Returns nil when every asset is caught up or
// exhausted.
func (s *Store) NextPendingOrResumable(ctx context.Context, retryCap int) (*model.RankedAssetState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ais.asset_id, ais.phase, ais.earliest_needed_ts, ais.last_committed_ts,
		       ais.retry_count, ais.terminal, ais.last_error, ais.updated_at, am.rank
		FROM asset_ingestion_state ais
		JOIN asset_metadata am ON am.asset_id = ais.asset_id
		WHERE ais.phase IN (?, ?)
		   OR (ais.phase = ? AND ais.terminal = 0 AND ais.retry_count < ?)
		ORDER BY am.rank ASC, ais.asset_id ASC
		LIMIT 1
	`, string(model.PhasePending), string(model.PhaseBackfilling),
		string(model.PhaseFailed), retryCap)

	var st model.RankedAssetState
	err := row.Scan(&st.AssetID, &st.Phase, &st.EarliestNeededTS, &st.LastCommittedTS,
		&st.RetryCount, &st.Terminal, &st.LastError, &st.UpdatedAt, &st.Rank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next asset: %w", err)
	}
	return &st, nil
}

// AssetState returns the progress record for one asset, or nil if the asset
// is not tracked.
func (s *Store) AssetState(ctx context.Context, assetID string) (*model.AssetIngestionState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT asset_id, phase, earliest_needed_ts, last_committed_ts,
		       retry_count, terminal, last_error, updated_at
		FROM asset_ingestion_state
		WHERE asset_id = ?
	`, assetID)

	var st model.AssetIngestionState
	err := row.Scan(&st.AssetID, &st.Phase, &st.EarliestNeededTS, &st.LastCommittedTS,
		&st.RetryCount, &st.Terminal, &st.LastError, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset state %s: %w", assetID, err)
	}
	return &st, nil
}
