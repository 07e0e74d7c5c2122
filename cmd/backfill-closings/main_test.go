package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/logging"
	"tillledger/internal/service"
	"tillledger/internal/store/memory"
)

func newLedger(t *testing.T, now *time.Time) *service.Service {
	t.Helper()
	return service.New(memory.New(), service.Options{
		Location: time.UTC,
		Now:      func() time.Time { return *now },
		Logger:   logging.Discard(),
	})
}

func recordAt(t *testing.T, svc *service.Service, at time.Time, gross string) {
	t.Helper()
	_, err := svc.Sales.RecordSale(context.Background(), domain.SaleRequest{
		Description: "Photo",
		Gross:       decimal.RequireFromString(gross),
		Method:      domain.PaymentCash,
		SoldAt:      at,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
}

func TestRunClosesDaysWithSales(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newLedger(t, &now)
	recordAt(t, svc, time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC), "40.00")
	recordAt(t, svc, time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC), "15.00")

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-from", "2026-03-07"}, &out, svc.Closings); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"2026-03-07 closed gross=40.00 net=40.00",
		"2026-03-08 skipped",
		"2026-03-09 closed gross=15.00 net=15.00",
		"done: 2 closed, 1 skipped",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}

	closings, err := svc.Closings.ListClosings(context.Background(), 0)
	if err != nil {
		t.Fatalf("list closings failed: %v", err)
	}
	if len(closings) != 2 || !closings[0].Automatic {
		t.Fatalf("expected two automatic closings, got %+v", closings)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newLedger(t, &now)
	recordAt(t, svc, time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC), "25.00")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-from", "2026-03-08", "-to", "2026-03-09", "-dry-run"}, &out, svc.Closings)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "2026-03-08 would close gross=25.00") || !strings.Contains(out.String(), "2026-03-09 no sales") {
		t.Fatalf("unexpected dry-run output:\n%s", out.String())
	}
	closings, _ := svc.Closings.ListClosings(context.Background(), 0)
	if len(closings) != 0 {
		t.Fatalf("expected dry run to write nothing, got %d closings", len(closings))
	}
}

func TestParseRange(t *testing.T) {
	today := domain.Date{Year: 2026, Month: time.March, Day: 10}

	from, to, err := parseRange("2026-03-01", "", today)
	if err != nil {
		t.Fatalf("parse range failed: %v", err)
	}
	if from.String() != "2026-03-01" || to.String() != "2026-03-09" {
		t.Fatalf("expected range up to yesterday, got %s..%s", from, to)
	}

	for _, tc := range []struct{ from, to string }{
		{"", ""},
		{"03/01/2026", ""},
		{"2026-03-05", "2026-03-01"},
		{"2026-03-05", "2026-03-10"},
	} {
		if _, _, err := parseRange(tc.from, tc.to, today); err == nil {
			t.Fatalf("expected error for -from %q -to %q", tc.from, tc.to)
		}
	}
}
