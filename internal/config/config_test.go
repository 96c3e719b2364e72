package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ingestor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
api:
  base_url: https://api.coingecko.com/api/v3
  api_key: test-key
store:
  path: /tmp/test.db
ingest:
  top_assets: 50
  retry_cap: 5
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.APIKey != "test-key" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "test-key")
	}
	if cfg.Store.Path != "/tmp/test.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/tmp/test.db")
	}
	if cfg.Ingest.TopAssets != 50 {
		t.Errorf("Ingest.TopAssets = %d, want 50", cfg.Ingest.TopAssets)
	}
	if cfg.Ingest.RetryCap != 5 {
		t.Errorf("Ingest.RetryCap = %d, want 5", cfg.Ingest.RetryCap)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_CG_API_KEY", "secret123")

	yaml := `
api:
  api_key: ${TEST_CG_API_KEY}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.APIKey != "secret123" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "secret123")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	yaml := `
api:
  base_url: https://api.coingecko.com/api/v3
  rate_limit: 30
`
	path := writeTempFile(t, yaml)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load succeeded, want unknown-key error")
	}
	if !strings.Contains(err.Error(), "rate_limit") {
		t.Errorf("error %q does not name the unknown key", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
store:
  path: /tmp/test.db
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Ingest.TopAssets != DefaultTopAssets {
		t.Errorf("Ingest.TopAssets = %d, want default %d", cfg.Ingest.TopAssets, DefaultTopAssets)
	}
	if cfg.Ingest.BackfillWindow != DefaultBackfillWindow {
		t.Errorf("Ingest.BackfillWindow = %v, want default %v", cfg.Ingest.BackfillWindow, DefaultBackfillWindow)
	}
	if cfg.Ingest.BackoffBase != DefaultBackoffBase {
		t.Errorf("Ingest.BackoffBase = %v, want default %v", cfg.Ingest.BackoffBase, DefaultBackoffBase)
	}
	// Explicit value survives defaulting.
	if cfg.Store.Path != "/tmp/test.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/tmp/test.db")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*IngestorConfig)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *IngestorConfig) {},
			wantErr: "",
		},
		{
			name:    "missing store path",
			mutate:  func(c *IngestorConfig) { c.Store.Path = "" },
			wantErr: "store.path",
		},
		{
			name:    "negative top assets",
			mutate:  func(c *IngestorConfig) { c.Ingest.TopAssets = -1 },
			wantErr: "ingest.top_assets",
		},
		{
			name:    "negative backfill window",
			mutate:  func(c *IngestorConfig) { c.Ingest.BackfillWindow = -1 },
			wantErr: "ingest.backfill_window",
		},
		{
			name: "backoff max below base",
			mutate: func(c *IngestorConfig) {
				c.Ingest.BackoffBase = DefaultBackoffMax
				c.Ingest.BackoffMax = DefaultBackoffBase
			},
			wantErr: "ingest.backoff_max",
		},
		{
			name:    "zero retry cap",
			mutate:  func(c *IngestorConfig) { c.Ingest.RetryCap = 0 },
			wantErr: "ingest.retry_cap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
