package cache

import (
	"context"
	"time"

	"tillledger/internal/domain"
)

// ClosingCache holds closings by date. Closings never change once written,
// so entries only expire by TTL.
type ClosingCache interface {
	Get(ctx context.Context, date domain.Date) (*domain.CashClosing, bool, error)
	Set(ctx context.Context, closing *domain.CashClosing, ttl time.Duration) error
}

type NoopClosingCache struct{}

func (NoopClosingCache) Get(_ context.Context, _ domain.Date) (*domain.CashClosing, bool, error) {
	return nil, false, nil
}

func (NoopClosingCache) Set(_ context.Context, _ *domain.CashClosing, _ time.Duration) error {
	return nil
}
