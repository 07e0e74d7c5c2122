package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/fee"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{"DATABASE_URL", "SQLITE_PATH", "CARD_FEE_RATE", "LOW_STOCK_THRESHOLD", "ROLLOVER_INTERVAL_SECONDS", "TILL_TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.LowStockThreshold != 10 {
		t.Fatalf("expected default low-stock threshold 10, got %d", cfg.LowStockThreshold)
	}
	if cfg.RolloverInterval != time.Minute {
		t.Fatalf("expected 60s rollover interval, got %s", cfg.RolloverInterval)
	}
	if !cfg.FeeRates[domain.PaymentCard].Equal(fee.DefaultCardRate) {
		t.Fatalf("expected default card rate, got %s", cfg.FeeRates[domain.PaymentCard])
	}
	if !cfg.UnlinkOnRemove {
		t.Fatalf("expected templates to be unlinked on removal by default")
	}
	if cfg.DatabaseURL != "" || cfg.SQLitePath != "" {
		t.Fatalf("expected no store configured, got %q / %q", cfg.DatabaseURL, cfg.SQLitePath)
	}
	if len(cfg.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %q", cfg.Warnings)
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LOW_STOCK_THRESHOLD", "-3")
	t.Setenv("ROLLOVER_INTERVAL_SECONDS", "soon")
	t.Setenv("CARD_FEE_RATE", "abc")
	t.Setenv("TILL_TIMEZONE", "Mars/Olympus")

	cfg := Load()
	if cfg.LowStockThreshold != 10 || cfg.RolloverInterval != time.Minute {
		t.Fatalf("expected fallbacks, got threshold=%d interval=%s", cfg.LowStockThreshold, cfg.RolloverInterval)
	}
	if !cfg.FeeRates[domain.PaymentCard].Equal(fee.DefaultCardRate) {
		t.Fatalf("expected default card rate, got %s", cfg.FeeRates[domain.PaymentCard])
	}
	if cfg.Location != time.Local {
		t.Fatalf("expected Local location fallback, got %s", cfg.Location)
	}
	if len(cfg.Warnings) != 2 {
		t.Fatalf("expected warnings for the rate and the timezone, got %q", cfg.Warnings)
	}
	if !strings.Contains(cfg.Warnings[0], "CARD_FEE_RATE") || !strings.Contains(cfg.Warnings[1], "Mars/Olympus") {
		t.Fatalf("unexpected warnings: %q", cfg.Warnings)
	}
}

func TestLoadReadsEnvFileWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "till.env")
	content := "CARD_FEE_RATE=0.04\nLOW_STOCK_THRESHOLD=3\nTILL_TIMEZONE=UTC\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("LOW_STOCK_THRESHOLD", "7")
	// t.Setenv restores the previous values; unset so the file can supply them.
	for _, key := range []string{"CARD_FEE_RATE", "TILL_TIMEZONE"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	cfg := Load()
	if !cfg.FeeRates[domain.PaymentCard].Equal(decimal.RequireFromString("0.04")) {
		t.Fatalf("expected card rate from env file, got %s", cfg.FeeRates[domain.PaymentCard])
	}
	if cfg.LowStockThreshold != 7 {
		t.Fatalf("expected process env to win over env file, got %d", cfg.LowStockThreshold)
	}
	if cfg.Location.String() != "UTC" {
		t.Fatalf("expected location from env file, got %s", cfg.Location)
	}
}
