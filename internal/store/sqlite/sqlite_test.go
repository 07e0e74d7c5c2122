package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"tillledger/internal/store"
	"tillledger/internal/store/storetest"
)

func TestRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		s, err := Open(context.Background(), filepath.Join(t.TempDir(), "till.db"))
		if err != nil {
			t.Fatalf("open sqlite failed: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "till.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close %d failed: %v", i, err)
		}
	}
}
