package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmorrell/coingecko-data/internal/api"
	"github.com/jmorrell/coingecko-data/internal/model"
	"github.com/jmorrell/coingecko-data/internal/store"
)

const hour = 3600 // seconds

// Client is the upstream data source consumed by the orchestrator.
type Client interface {
	ListTopAssets(ctx context.Context, limit int) ([]model.AssetMetadata, error)
	GetMarketChart(ctx context.Context, assetID string, from, to int64) ([]model.MarketDataPoint, error)
}

// Config holds orchestrator settings.
type Config struct {
	TopAssets       int           // Number of top-ranked assets to track
	BackfillWindow  time.Duration // History collected per asset
	MaxRangePerCall time.Duration // Widest window per market_chart call
	GracePeriod     time.Duration // Distance from now that counts as caught up
	StaleAfter      time.Duration // Caught-up assets older than this are re-collected
	RetryCap        int           // Transient failures allowed per asset
	BackoffBase     time.Duration // First rate-limit sleep
	BackoffMax      time.Duration // Sleep ceiling
	ForceDiscovery  bool          // Re-run asset discovery even when resuming
}

// Orchestrator drives the ingestion pipeline.
type Orchestrator struct {
	cfg     Config
	client  Client
	store   *store.Store
	logger  *slog.Logger
	backoff Backoff

	// Injected for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates an Orchestrator.
func New(cfg Config, client Client, st *store.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		store:   st,
		logger:  logger,
		backoff: Backoff{Base: cfg.BackoffBase, Max: cfg.BackoffMax},
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Run executes one full ingestion cycle: discovery (when needed), then the
// backfill/incremental loop until every schedulable asset is caught up or
// exhausted. Network and API failures are handled inside the loop; only
// store failures and cancellation escape.
func (o *Orchestrator) Run(ctx context.Context) (*store.IngestionSummary, error) {
	state, err := o.store.GlobalState(ctx)
	if err != nil {
		return nil, err
	}

	runID, err := o.store.BeginRun(ctx)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With("run_id", runID)

	fresh := state.Status == model.RunNotStarted || state.Status == model.RunComplete
	if fresh || o.cfg.ForceDiscovery {
		if err := o.discoverAssets(ctx, logger); err != nil {
			return nil, err
		}
	} else {
		logger.Info("resuming interrupted run", "previous_status", state.Status)
	}

	// A new run over previously caught-up assets re-collects the hours that
	// accrued since; an interrupted run resumes from its checkpoints either way.
	reactivated, err := o.store.ReactivateStale(ctx, o.now().Unix(), o.cfg.StaleAfter)
	if err != nil {
		return nil, err
	}
	if reactivated > 0 {
		logger.Info("reactivated stale assets", "count", reactivated)
	}

	if err := o.setLoopStatus(ctx); err != nil {
		return nil, err
	}

	if err := o.ingestLoop(ctx, logger); err != nil {
		return nil, err
	}

	if err := o.store.SetGlobalStatus(ctx, model.RunComplete); err != nil {
		return nil, err
	}

	summary, err := o.store.Summary(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("ingestion complete",
		"assets", summary.TotalAssets,
		"caught_up", summary.AssetsCaughtUp,
		"failed_terminal", summary.AssetsTerminal,
		"data_points", summary.TotalDataPoints,
	)
	return summary, nil
}

// discoverAssets refreshes the tracked asset list and seeds progress rows.
// Rate limiting during discovery suspends and retries under the same backoff
// schedule as the main loop.
func (o *Orchestrator) discoverAssets(ctx context.Context, logger *slog.Logger) error {
	if err := o.store.SetGlobalStatus(ctx, model.RunDiscovering); err != nil {
		return err
	}

	var assets []model.AssetMetadata
	for {
		var err error
		assets, err = o.client.ListTopAssets(ctx, o.cfg.TopAssets)
		if err == nil {
			break
		}

		var rl *api.RateLimitError
		if !errors.As(err, &rl) {
			return fmt.Errorf("discover assets: %w", err)
		}
		if err := o.suspendRateLimited(ctx, logger, rl); err != nil {
			return err
		}
	}
	o.backoff.Reset()

	logger.Info("discovered assets", "count", len(assets))

	if err := o.store.UpsertAssetMetadata(ctx, assets); err != nil {
		return err
	}

	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.AssetID
	}
	earliest := o.now().Add(-o.cfg.BackfillWindow).Unix()
	return o.store.SeedAssetProgress(ctx, ids, earliest)
}

// setLoopStatus chooses backfilling vs incremental for the main loop: a run
// where every schedulable asset has already committed data is incremental.
func (o *Orchestrator) setLoopStatus(ctx context.Context) error {
	sum, err := o.store.Summary(ctx)
	if err != nil {
		return err
	}
	status := model.RunBackfilling
	if sum.AssetsPending == 0 {
		status = model.RunIncremental
	}
	return o.store.SetGlobalStatus(ctx, status)
}

// ingestLoop processes one asset window at a time until nothing is
// schedulable.
func (o *Orchestrator) ingestLoop(ctx context.Context, logger *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		asset, err := o.store.NextPendingOrResumable(ctx, o.cfg.RetryCap)
		if err != nil {
			return err
		}
		if asset == nil {
			return nil
		}

		if err := o.processWindow(ctx, logger, asset); err != nil {
			return err
		}
	}
}

// processWindow fetches and commits one window for one asset.
func (o *Orchestrator) processWindow(ctx context.Context, logger *slog.Logger, asset *model.RankedAssetState) error {
	now := o.now().Unix()

	from := asset.EarliestNeededTS
	if asset.LastCommittedTS > 0 {
		from = asset.LastCommittedTS + hour
	}
	if from < asset.EarliestNeededTS {
		from = asset.EarliestNeededTS
	}

	// Nothing new to fetch yet: the checkpoint is inside the grace window.
	if from > now-int64(o.cfg.GracePeriod.Seconds()) {
		return o.store.MarkCaughtUp(ctx, asset.AssetID)
	}

	to := from + int64(o.cfg.MaxRangePerCall.Seconds())
	if to > now {
		to = now
	}

	points, err := o.client.GetMarketChart(ctx, asset.AssetID, from, to)
	if err != nil {
		return o.handleFetchError(ctx, logger, asset, err)
	}
	o.backoff.Reset()

	if len(points) > 0 {
		if err := o.store.CommitMarketData(ctx, asset.AssetID, points); err != nil {
			return err
		}
		logger.Info("committed window",
			"asset_id", asset.AssetID,
			"from", from,
			"to", to,
			"points", len(points),
		)
	} else {
		// No data in the window (asset younger than the backfill window, or
		// sparse data near the current hour). Advance the cursor so the next
		// fetch makes progress.
		if err := o.store.AdvanceCheckpoint(ctx, asset.AssetID, to); err != nil {
			return err
		}
		logger.Debug("empty window", "asset_id", asset.AssetID, "from", from, "to", to)
	}

	if to >= now-int64(o.cfg.GracePeriod.Seconds()) {
		return o.store.MarkCaughtUp(ctx, asset.AssetID)
	}
	return nil
}

// handleFetchError applies the error taxonomy: rate limits suspend the whole
// pipeline without charging the asset; transient failures burn one retry;
// protocol failures are terminal for the asset. Store failures propagate.
func (o *Orchestrator) handleFetchError(ctx context.Context, logger *slog.Logger, asset *model.RankedAssetState, err error) error {
	var rl *api.RateLimitError
	if errors.As(err, &rl) {
		return o.suspendRateLimited(ctx, logger, rl)
	}

	var te *api.TransientError
	if errors.As(err, &te) {
		logger.Warn("transient fetch failure",
			"asset_id", asset.AssetID,
			"retry_count", asset.RetryCount+1,
			"err", err,
		)
		return o.store.MarkFailed(ctx, asset.AssetID, err.Error(), false)
	}

	var pe *api.ProtocolError
	if errors.As(err, &pe) {
		logger.Error("protocol failure, asset disabled",
			"asset_id", asset.AssetID,
			"err", err,
		)
		return o.store.MarkFailed(ctx, asset.AssetID, err.Error(), true)
	}

	// Context cancellation or anything unclassified aborts the run.
	return fmt.Errorf("fetch %s: %w", asset.AssetID, err)
}

// suspendRateLimited persists the rate-limited status, sleeps the next
// backoff step, and restores the loop status. The Retry-After header is a
// logged hint only; the exponential schedule governs the sleep.
func (o *Orchestrator) suspendRateLimited(ctx context.Context, logger *slog.Logger, rl *api.RateLimitError) error {
	if err := o.store.SetGlobalStatus(ctx, model.RunRateLimited); err != nil {
		return err
	}

	delay := o.backoff.Next()
	logger.Warn("rate limited, suspending",
		"sleep", delay,
		"attempt", o.backoff.Attempt(),
		"retry_after_hint", rl.RetryAfter,
	)

	if err := o.sleep(ctx, delay); err != nil {
		return err
	}

	return o.setLoopStatus(ctx)
}

// sleepCtx blocks for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
