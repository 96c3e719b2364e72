package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmorrell/coingecko-data/internal/model"
)

var (
	// ErrNoPosition is returned when a sell targets an asset with no open
	// position.
	ErrNoPosition = errors.New("no open position")

	// ErrInsufficientQuantity is returned when a sell exceeds the open
	// position's quantity.
	ErrInsufficientQuantity = errors.New("insufficient position quantity")
)

// TradeEntry describes one trade to record. Quantity and PriceUSD must be
// positive; FeesUSD may be zero.
type TradeEntry struct {
	AssetID    string
	Symbol     string
	Quantity   float64
	PriceUSD   float64
	FeesUSD    float64
	ExecutedAt int64
}

func (e *TradeEntry) validate() error {
	if e.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %v", e.Quantity)
	}
	if e.PriceUSD <= 0 {
		return fmt.Errorf("price_usd must be positive, got %v", e.PriceUSD)
	}
	return nil
}

// RecordBuy appends a BUY to the trade ledger and updates the position's
// quantity and weighted average cost basis, in one transaction. Returns the
// generated trade id.
func (s *Store) RecordBuy(ctx context.Context, entry TradeEntry) (string, error) {
	if err := entry.validate(); err != nil {
		return "", fmt.Errorf("record buy: %w", err)
	}

	tradeID := uuid.NewString()
	now := time.Now().Unix()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertTrade(ctx, tx, tradeID, model.SideBuy, entry, 0, now); err != nil {
			return err
		}

		pos, err := positionTx(ctx, tx, entry.AssetID)
		if err != nil {
			return err
		}
		if pos == nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO positions (asset_id, symbol, quantity, avg_cost_basis_usd, opened_at, last_updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, entry.AssetID, entry.Symbol, entry.Quantity, entry.PriceUSD, now, now)
			if err != nil {
				return fmt.Errorf("open position %s: %w", entry.AssetID, err)
			}
			return nil
		}

		newQty := pos.Quantity + entry.Quantity
		newAvg := (pos.Quantity*pos.AvgCostBasisUSD + entry.Quantity*entry.PriceUSD) / newQty
		_, err = tx.ExecContext(ctx, `
			UPDATE positions
			SET quantity = ?, avg_cost_basis_usd = ?, last_updated_at = ?
			WHERE asset_id = ?
		`, newQty, newAvg, now, entry.AssetID)
		if err != nil {
			return fmt.Errorf("update position %s: %w", entry.AssetID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return tradeID, nil
}

// RecordSell appends a SELL to the trade ledger, realizes P&L against the
// position's average cost basis, and reduces the position, in one
// transaction. A position sold to zero is closed. Returns the generated
// trade id.
//
// realized = quantity*price - quantity*avg_cost - fees
func (s *Store) RecordSell(ctx context.Context, entry TradeEntry) (string, error) {
	if err := entry.validate(); err != nil {
		return "", fmt.Errorf("record sell: %w", err)
	}

	tradeID := uuid.NewString()
	now := time.Now().Unix()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		pos, err := positionTx(ctx, tx, entry.AssetID)
		if err != nil {
			return err
		}
		if pos == nil {
			return fmt.Errorf("record sell %s: %w", entry.AssetID, ErrNoPosition)
		}
		if entry.Quantity > pos.Quantity {
			return fmt.Errorf("record sell %s: sell %v exceeds held %v: %w",
				entry.AssetID, entry.Quantity, pos.Quantity, ErrInsufficientQuantity)
		}

		realized := entry.Quantity*entry.PriceUSD - entry.Quantity*pos.AvgCostBasisUSD - entry.FeesUSD
		if err := insertTrade(ctx, tx, tradeID, model.SideSell, entry, realized, now); err != nil {
			return err
		}

		newQty := pos.Quantity - entry.Quantity
		if newQty <= 0 {
			_, err = tx.ExecContext(ctx, `DELETE FROM positions WHERE asset_id = ?`, entry.AssetID)
			if err != nil {
				return fmt.Errorf("close position %s: %w", entry.AssetID, err)
			}
			return nil
		}
		// Cost basis is unchanged by sells; it was consumed by the P&L above.
		_, err = tx.ExecContext(ctx, `
			UPDATE positions
			SET quantity = ?, last_updated_at = ?
			WHERE asset_id = ?
		`, newQty, now, entry.AssetID)
		if err != nil {
			return fmt.Errorf("update position %s: %w", entry.AssetID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return tradeID, nil
}

func insertTrade(ctx context.Context, tx *sql.Tx, tradeID string, side model.TradeSide, entry TradeEntry, realized float64, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO trades (trade_id, asset_id, symbol, side, quantity,
			price_usd, trade_value_usd, executed_at, fees_usd, realized_pnl_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tradeID, entry.AssetID, entry.Symbol, string(side), entry.Quantity,
		entry.PriceUSD, entry.Quantity*entry.PriceUSD, entry.ExecutedAt,
		entry.FeesUSD, realized, now)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", entry.AssetID, err)
	}
	return nil
}

func positionTx(ctx context.Context, tx *sql.Tx, assetID string) (*model.Position, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT asset_id, symbol, quantity, avg_cost_basis_usd, opened_at, last_updated_at
		FROM positions
		WHERE asset_id = ?
	`, assetID)

	var p model.Position
	err := row.Scan(&p.AssetID, &p.Symbol, &p.Quantity, &p.AvgCostBasisUSD, &p.OpenedAt, &p.LastUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", assetID, err)
	}
	return &p, nil
}

// Position returns the open position for one asset, or nil when none exists.
func (s *Store) Position(ctx context.Context, assetID string) (*model.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT asset_id, symbol, quantity, avg_cost_basis_usd, opened_at, last_updated_at
		FROM positions
		WHERE asset_id = ?
	`, assetID)

	var p model.Position
	err := row.Scan(&p.AssetID, &p.Symbol, &p.Quantity, &p.AvgCostBasisUSD, &p.OpenedAt, &p.LastUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", assetID, err)
	}
	return &p, nil
}

// OpenPositions returns all positions with quantity > 0, largest holding
// first.
func (s *Store) OpenPositions(ctx context.Context) ([]model.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, symbol, quantity, avg_cost_basis_usd, opened_at, last_updated_at
		FROM positions
		WHERE quantity > 0
		ORDER BY quantity DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.AssetID, &p.Symbol, &p.Quantity, &p.AvgCostBasisUSD, &p.OpenedAt, &p.LastUpdatedAt); err != nil {
			return nil, fmt.Errorf("list positions: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// TradeHistory returns the trade ledger newest-first. An empty assetID
// returns trades for every asset.
func (s *Store) TradeHistory(ctx context.Context, assetID string) ([]model.Trade, error) {
	query := `
		SELECT trade_id, asset_id, symbol, side, quantity, price_usd,
		       trade_value_usd, executed_at, fees_usd, realized_pnl_usd, created_at
		FROM trades`
	args := []any{}
	if assetID != "" {
		query += ` WHERE asset_id = ?`
		args = append(args, assetID)
	}
	query += ` ORDER BY executed_at DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trade history: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		err := rows.Scan(&t.TradeID, &t.AssetID, &t.Symbol, &t.Side, &t.Quantity,
			&t.PriceUSD, &t.TradeValueUSD, &t.ExecutedAt, &t.FeesUSD, &t.RealizedPnLUSD, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("trade history: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trade history: %w", err)
	}
	return trades, nil
}

// AssetPnL is the realized outcome for one asset.
type AssetPnL struct {
	AssetID        string
	RealizedPnLUSD float64
	TradeCount     int
	TotalBoughtUSD float64
	TotalSoldUSD   float64
}

// PnLSummary aggregates realized P&L across the trade ledger.
type PnLSummary struct {
	TotalRealizedPnLUSD float64
	TotalTrades         int
	TotalBuys           int
	TotalSells          int
	TotalFeesUSD        float64
	ByAsset             []AssetPnL // Best realized P&L first
}

// RealizedPnLSummary returns aggregated realized P&L statistics with a
// per-asset breakdown.
func (s *Store) RealizedPnLSummary(ctx context.Context) (*PnLSummary, error) {
	sum := &PnLSummary{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(realized_pnl_usd), 0),
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN side = 'BUY' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN side = 'SELL' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(fees_usd), 0)
		FROM trades
	`).Scan(&sum.TotalRealizedPnLUSD, &sum.TotalTrades, &sum.TotalBuys, &sum.TotalSells, &sum.TotalFeesUSD)
	if err != nil {
		return nil, fmt.Errorf("pnl summary: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id,
		       COALESCE(SUM(realized_pnl_usd), 0),
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN side = 'BUY' THEN trade_value_usd ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN side = 'SELL' THEN trade_value_usd ELSE 0 END), 0)
		FROM trades
		GROUP BY asset_id
		ORDER BY 2 DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("pnl summary by asset: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a AssetPnL
		if err := rows.Scan(&a.AssetID, &a.RealizedPnLUSD, &a.TradeCount, &a.TotalBoughtUSD, &a.TotalSoldUSD); err != nil {
			return nil, fmt.Errorf("pnl summary by asset: %w", err)
		}
		sum.ByAsset = append(sum.ByAsset, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pnl summary by asset: %w", err)
	}
	return sum, nil
}

// PortfolioSummary is a high-level portfolio overview.
type PortfolioSummary struct {
	TotalPositions      int
	TotalCostBasisUSD   float64
	TotalRealizedPnLUSD float64
	TotalTrades         int
}

// Portfolio returns the high-level portfolio overview.
func (s *Store) Portfolio(ctx context.Context) (*PortfolioSummary, error) {
	sum := &PortfolioSummary{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(quantity * avg_cost_basis_usd), 0)
		FROM positions
		WHERE quantity > 0
	`).Scan(&sum.TotalPositions, &sum.TotalCostBasisUSD)
	if err != nil {
		return nil, fmt.Errorf("portfolio summary: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(realized_pnl_usd), 0) FROM trades
	`).Scan(&sum.TotalTrades, &sum.TotalRealizedPnLUSD)
	if err != nil {
		return nil, fmt.Errorf("portfolio summary: %w", err)
	}
	return sum, nil
}
