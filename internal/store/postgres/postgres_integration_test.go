package postgres

import (
	"context"
	"os"
	"testing"

	"tillledger/internal/store"
	"tillledger/internal/store/storetest"
)

// Each subtest truncates the tables, so point this at a throwaway database.
func TestRepositoryIntegration(t *testing.T) {
	url := os.Getenv("TILL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TILL_TEST_DATABASE_URL not set")
	}
	storetest.Run(t, func(t *testing.T) store.Repository {
		ctx := context.Background()
		s, err := New(ctx, url)
		if err != nil {
			t.Fatalf("connect postgres failed: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		if _, err := s.DB().ExecContext(ctx, `TRUNCATE sales, inventory_items, stock_movements, sale_templates, cash_closings RESTART IDENTITY`); err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
		return s
	})
}
