package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"FETCH_TIMEOUT", "DASHBOARD_STALE_AFTER", "AUTH_READY_TIMEOUT", "LOW_STOCK_DEFAULT_THRESHOLD"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("expected fetch timeout 15s, got %s", cfg.FetchTimeout)
	}
	if cfg.StaleAfter != 2*time.Minute {
		t.Errorf("expected stale window 2m, got %s", cfg.StaleAfter)
	}
	if cfg.AuthReadyTimeout != 5*time.Second {
		t.Errorf("expected auth wait 5s, got %s", cfg.AuthReadyTimeout)
	}
	if cfg.LowStockDefaultThreshold != 10 {
		t.Errorf("expected default threshold 10, got %d", cfg.LowStockDefaultThreshold)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("LOW_STOCK_DEFAULT_THRESHOLD", "4")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := config.Load()

	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.FetchTimeout)
	}
	if cfg.LowStockDefaultThreshold != 4 {
		t.Errorf("expected 4, got %d", cfg.LowStockDefaultThreshold)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("expected malformed value to fall back to 2, got %d", cfg.MaxRetries)
	}
}

func TestLocation(t *testing.T) {
	cfg := &config.Config{StoreTimezone: "Local"}
	if cfg.Location() != time.Local {
		t.Error("expected Local")
	}

	cfg.StoreTimezone = "Not/AZone"
	if cfg.Location() != time.Local {
		t.Error("expected unknown zone to fall back to Local")
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("POS_TEST_A=from-file\nPOS_TEST_B=\"quoted\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POS_TEST_A", "from-env")
	t.Setenv("POS_TEST_B", "")
	os.Unsetenv("POS_TEST_B")

	if err := config.LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := os.Getenv("POS_TEST_A"); got != "from-env" {
		t.Errorf("expected env to win, got %q", got)
	}
	if got := os.Getenv("POS_TEST_B"); got != "quoted" {
		t.Errorf("expected unquoted file value, got %q", got)
	}
}
