package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmorrell/coingecko-data/internal/model"
)

// GlobalState returns the singleton run-state record.
func (s *Store) GlobalState(ctx context.Context) (model.GlobalRunState, error) {
	var st model.GlobalRunState
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, status, last_updated_at FROM run_state WHERE id = 1`,
	).Scan(&st.RunID, &st.Status, &st.LastUpdatedAt)
	if err != nil {
		return model.GlobalRunState{}, fmt.Errorf("get run state: %w", err)
	}
	return st, nil
}

// BeginRun stamps a fresh run id into the run-state record and returns it.
func (s *Store) BeginRun(ctx context.Context) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`UPDATE run_state SET run_id = ?, last_updated_at = ? WHERE id = 1`,
		runID, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return runID, nil
}

// SetGlobalStatus transitions the global run status.
func (s *Store) SetGlobalStatus(ctx context.Context, status model.RunStatus) error {
	if !status.Valid() {
		return fmt.Errorf("set global status: invalid status %q", status)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE run_state SET status = ?, last_updated_at = ? WHERE id = 1`,
		string(status), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set global status: %w", err)
	}
	return nil
}
