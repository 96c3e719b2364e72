package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jmorrell/coingecko-data/internal/api"
	"github.com/jmorrell/coingecko-data/internal/config"
	"github.com/jmorrell/coingecko-data/internal/ingest"
	"github.com/jmorrell/coingecko-data/internal/store"
	"github.com/jmorrell/coingecko-data/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	forceDiscovery := flag.Bool("force-discovery", false, "re-run asset discovery even when resuming")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ingestor",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Optional .env bootstrap; existing environment wins.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.API.APIKey == "" {
		cfg.API.APIKey = os.Getenv("COINGECKO_API_KEY")
	}

	logger.Info("configuration loaded",
		"api_url", cfg.API.BaseURL,
		"store_path", cfg.Store.Path,
		"top_assets", cfg.Ingest.TopAssets,
		"authenticated", cfg.API.APIKey != "",
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	client := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		api.WithTimeout(cfg.API.Timeout),
		api.WithPageSize(cfg.API.PageSize),
		api.WithLogger(logger),
	)

	orch := ingest.New(ingest.Config{
		TopAssets:       cfg.Ingest.TopAssets,
		BackfillWindow:  cfg.Ingest.BackfillWindow,
		MaxRangePerCall: cfg.Ingest.MaxRangePerCall,
		GracePeriod:     cfg.Ingest.GracePeriod,
		StaleAfter:      cfg.Ingest.StaleAfter,
		RetryCap:        cfg.Ingest.RetryCap,
		BackoffBase:     cfg.Ingest.BackoffBase,
		BackoffMax:      cfg.Ingest.BackoffMax,
		ForceDiscovery:  *forceDiscovery,
	}, client, st, logger)

	summary, err := orch.Run(ctx)
	if err != nil {
		// Interrupted runs resume cleanly next time; report and exit non-zero.
		if errors.Is(err, context.Canceled) {
			logger.Info("run interrupted, progress is durable")
		} else {
			logger.Error("run failed", "error", err)
		}
		os.Exit(1)
	}

	printSummary(summary)
}

func loadConfig(path string) (*config.IngestorConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadAndValidate(path)
}

// printSummary writes the per-run outcome, including partial success with
// terminal per-asset failures.
func printSummary(sum *store.IngestionSummary) {
	fmt.Println("\nIngestion complete")
	fmt.Printf("  Run ID:            %s\n", sum.RunID)
	fmt.Printf("  Assets tracked:    %d\n", sum.TotalAssets)
	fmt.Printf("  Caught up:         %d\n", sum.AssetsCaughtUp)
	fmt.Printf("  Failed (retryable): %d\n", sum.AssetsFailed-sum.AssetsTerminal)
	fmt.Printf("  Failed (terminal):  %d\n", sum.AssetsTerminal)
	fmt.Printf("  Data points:       %d\n", sum.TotalDataPoints)
}
