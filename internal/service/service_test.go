package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/logging"
	"tillledger/internal/store"
	"tillledger/internal/store/memory"
)

var errDiskFull = errors.New("disk full")

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

type testEnv struct {
	svc   *Service
	repo  *faultyRepo
	clock *testClock
	logs  *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, Options{UnlinkOnRemove: true})
}

func newTestEnvWith(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:  &faultyRepo{Repository: memory.New()},
		clock: &testClock{now: time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)},
		logs:  &bytes.Buffer{},
	}
	opts.Location = time.UTC
	opts.Now = env.clock.Now
	opts.Logger = logging.NewWithOutput("debug", "text", env.logs)
	env.svc = New(env.repo, opts)
	return env
}

func (e *testEnv) today() domain.Date {
	return domain.DateOf(e.clock.now, time.UTC)
}

// faultyRepo fails selected transaction steps after the earlier steps of
// the same transaction have already been applied.
type faultyRepo struct {
	store.Repository
	failUpdateItem  bool
	failDeleteSales bool
}

func (f *faultyRepo) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Repository.RunInTx(ctx, func(tx store.Tx) error {
		return fn(&faultyTx{Tx: tx, repo: f})
	})
}

type faultyTx struct {
	store.Tx
	repo *faultyRepo
}

func (t *faultyTx) UpdateItem(ctx context.Context, item domain.InventoryItem) error {
	if t.repo.failUpdateItem {
		return errDiskFull
	}
	return t.Tx.UpdateItem(ctx, item)
}

func (t *faultyTx) DeleteSales(ctx context.Context, from time.Time, to time.Time) (int64, error) {
	if t.repo.failDeleteSales {
		return 0, errDiskFull
	}
	return t.Tx.DeleteSales(ctx, from, to)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func mustRecord(t *testing.T, env *testEnv, description string, gross string, method domain.PaymentMethod) domain.Sale {
	t.Helper()
	sale, err := env.svc.Sales.RecordSale(context.Background(), domain.SaleRequest{
		Description: description,
		Gross:       dec(gross),
		Method:      method,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	return sale
}

func mustAddItem(t *testing.T, env *testEnv, name string, qty int, cost string) domain.InventoryItem {
	t.Helper()
	item, err := env.svc.Inventory.AddItem(context.Background(), domain.ItemCreateRequest{
		Name:      name,
		Quantity:  qty,
		TotalCost: dec(cost),
	})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	return item
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("expected %s %s, got %s", label, want, got.String())
	}
}
