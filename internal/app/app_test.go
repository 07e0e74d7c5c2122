package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillledger/internal/config"
	"tillledger/internal/domain"
	"tillledger/internal/fee"
	"tillledger/internal/logging"
	"tillledger/internal/store/memory"
	"tillledger/internal/store/sqlite"
)

func baseConfig() config.Config {
	return config.Config{
		Location:          time.UTC,
		FeeRates:          fee.DefaultRates(),
		LowStockThreshold: 10,
		ClosingCacheTTL:   time.Hour,
		UnlinkOnRemove:    true,
	}
}

func TestOpenDefaultsToMemory(t *testing.T) {
	a, err := Open(context.Background(), baseConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer a.Close()

	if _, ok := a.Repo.(*memory.Store); !ok {
		t.Fatalf("expected memory repository, got %T", a.Repo)
	}
	if a.Redis != nil {
		t.Fatalf("expected no redis without REDIS_ADDR")
	}
}

func TestOpenUsesSQLitePath(t *testing.T) {
	cfg := baseConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "till.db")

	a, err := Open(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer a.Close()

	if _, ok := a.Repo.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite repository, got %T", a.Repo)
	}
	sale, err := a.Service.Sales.RecordSale(context.Background(), domain.SaleRequest{
		Description: "Photo",
		Gross:       decimal.RequireFromString("100.00"),
		Method:      domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if !sale.Net.Equal(decimal.RequireFromString("94.67")) {
		t.Fatalf("expected configured card rate to apply, got net %s", sale.Net)
	}
}

func TestOpenLogsConfigWarnings(t *testing.T) {
	cfg := baseConfig()
	cfg.Warnings = []string{`ignoring invalid CARD_FEE_RATE="abc"`}
	var out bytes.Buffer

	a, err := Open(context.Background(), cfg, logging.NewWithOutput("info", "json", &out))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer a.Close()

	if !strings.Contains(out.String(), "CARD_FEE_RATE") || !strings.Contains(out.String(), `"module":"config"`) {
		t.Fatalf("expected config warning in the structured log, got %s", out.String())
	}
}

func TestOpenRejectsBadFeeRates(t *testing.T) {
	cfg := baseConfig()
	cfg.FeeRates = map[domain.PaymentMethod]decimal.Decimal{"BOLETO": decimal.RequireFromString("0.01")}

	if _, err := Open(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected an unknown payment method to be rejected")
	}
}
