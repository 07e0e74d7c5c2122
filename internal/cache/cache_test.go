package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
)

func TestNoopCacheNeverHits(t *testing.T) {
	var c ClosingCache = NoopClosingCache{}
	date := domain.Date{Year: 2026, Month: time.March, Day: 2}

	if err := c.Set(context.Background(), &domain.CashClosing{Date: date}, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok, err := c.Get(context.Background(), date); ok || err != nil {
		t.Fatalf("expected miss without error, got ok=%v err=%v", ok, err)
	}
}

func TestRedisClosingCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("TILL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TILL_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	c := NewRedisClosingCache(addr, os.Getenv("TILL_TEST_REDIS_PASSWORD"), 0)
	t.Cleanup(func() {
		_ = c.Close()
	})
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	date := domain.Date{Year: 1999, Month: time.December, Day: 31}
	t.Cleanup(func() {
		_ = c.Client().Del(ctx, closingKeyPrefix+date.String()).Err()
	})

	want := &domain.CashClosing{
		Date:       date,
		ClosedAt:   time.Date(2000, 1, 1, 0, 0, 5, 0, time.UTC),
		Gross:      decimal.RequireFromString("200.00"),
		Net:        decimal.RequireFromString("192.00"),
		Counted:    decimal.NullDecimal{Decimal: decimal.RequireFromString("192.00"), Valid: true},
		Difference: decimal.NullDecimal{Decimal: decimal.Zero, Valid: true},
	}
	if err := c.Set(ctx, want, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx, date)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Date != date || !got.Net.Equal(want.Net) || !got.Counted.Valid || !got.Difference.Decimal.IsZero() {
		t.Fatalf("unexpected closing from cache: %+v", got)
	}
}
