package store

import (
	"context"
	"fmt"

	"github.com/jmorrell/coingecko-data/internal/model"
)

// IngestionSummary aggregates run progress. Read-only; safe to query while
// the writer is active.
type IngestionSummary struct {
	RunID             string
	Status            model.RunStatus
	TotalAssets       int
	AssetsPending     int
	AssetsBackfilling int
	AssetsCaughtUp    int
	AssetsFailed      int
	AssetsTerminal    int
	TotalDataPoints   int64
}

// Summary returns aggregate ingestion counts from a consistent snapshot.
func (s *Store) Summary(ctx context.Context) (*IngestionSummary, error) {
	state, err := s.GlobalState(ctx)
	if err != nil {
		return nil, err
	}

	sum := &IngestionSummary{
		RunID:  state.RunID,
		Status: state.Status,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT phase, COUNT(*) FROM asset_ingestion_state GROUP BY phase
	`)
	if err != nil {
		return nil, fmt.Errorf("summary phases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var phase string
		var count int
		if err := rows.Scan(&phase, &count); err != nil {
			return nil, fmt.Errorf("summary phases: %w", err)
		}
		switch model.AssetPhase(phase) {
		case model.PhasePending:
			sum.AssetsPending = count
		case model.PhaseBackfilling:
			sum.AssetsBackfilling = count
		case model.PhaseCaughtUp:
			sum.AssetsCaughtUp = count
		case model.PhaseFailed:
			sum.AssetsFailed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary phases: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM asset_metadata`,
	).Scan(&sum.TotalAssets); err != nil {
		return nil, fmt.Errorf("summary assets: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM asset_ingestion_state WHERE terminal = 1`,
	).Scan(&sum.AssetsTerminal); err != nil {
		return nil, fmt.Errorf("summary terminal: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM market_data`,
	).Scan(&sum.TotalDataPoints); err != nil {
		return nil, fmt.Errorf("summary points: %w", err)
	}

	return sum, nil
}

// DataPointCount returns the number of stored points for one asset.
func (s *Store) DataPointCount(ctx context.Context, assetID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM market_data WHERE asset_id = ?`, assetID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count points %s: %w", assetID, err)
	}
	return n, nil
}
