// Package service holds the till's ledgers: sales, inventory, quick-sale
// templates and the daily cash closing. Every mutation runs inside one
// store transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tillledger/internal/cache"
	"tillledger/internal/domain"
	"tillledger/internal/fee"
	"tillledger/internal/store"
	"tillledger/internal/xid"
)

const defaultLowStockThreshold = 10

type Options struct {
	Fees              *fee.Policy
	Location          *time.Location
	Now               func() time.Time
	Logger            *logrus.Logger
	LowStockThreshold int
	UnlinkOnRemove    bool
	ClosingCache      cache.ClosingCache
	ClosingCacheTTL   time.Duration
}

// Service groups the ledgers over one repository.
type Service struct {
	Sales     *Sales
	Inventory *Inventory
	Templates *Templates
	Closings  *Closings
	Dashboard *Dashboard
}

func New(repo store.Repository, opts Options) *Service {
	c := newCore(repo, opts)
	sales := &Sales{core: c}
	inventory := &Inventory{core: c, threshold: opts.LowStockThreshold, unlinkOnRemove: opts.UnlinkOnRemove}
	return &Service{
		Sales:     sales,
		Inventory: inventory,
		Templates: &Templates{core: c},
		Closings:  newClosings(c, opts.ClosingCache, opts.ClosingCacheTTL),
		Dashboard: &Dashboard{sales: sales, inventory: inventory},
	}
}

type core struct {
	repo     store.Repository
	fees     *fee.Policy
	loc      *time.Location
	now      func() time.Time
	log      *logrus.Logger
	validate *validator.Validate
}

func newCore(repo store.Repository, opts Options) *core {
	c := &core{
		repo:     repo,
		fees:     opts.Fees,
		loc:      opts.Location,
		now:      opts.Now,
		log:      opts.Logger,
		validate: newValidator(),
	}
	if c.fees == nil {
		c.fees = fee.Default()
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func (c *core) today() domain.Date {
	return domain.DateOf(c.now(), c.loc)
}

func (c *core) dayQuery(date domain.Date) domain.SaleQuery {
	return domain.SaleQuery{From: date.Start(c.loc).UTC(), To: date.End(c.loc).UTC()}
}

// check runs struct validation and converts field errors to a ValidationError.
func (c *core) check(req any) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return store.NewValidationError(err.Error())
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			details = append(details, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return store.NewValidationError(details...)
}

// finish logs and wraps persistence errors; domain errors pass through.
func (c *core) finish(module string, op string, err error) error {
	if err == nil {
		return nil
	}
	err = store.Failure(op, err)
	if errors.Is(err, store.ErrStoreFailure) {
		c.log.WithFields(logrus.Fields{"module": module, "op": op}).WithError(err).Error("store operation failed")
	}
	return err
}

// insertSale prices req through the fee policy and writes it with tx.
func (c *core) insertSale(ctx context.Context, tx store.Tx, req domain.SaleRequest) (domain.Sale, error) {
	saleFee, net, err := c.fees.Split(req.Gross, req.Method)
	if err != nil {
		return domain.Sale{}, err
	}
	soldAt := req.SoldAt
	if soldAt.IsZero() {
		soldAt = c.now()
	}

	sale := domain.Sale{
		SoldAt:      soldAt.UTC(),
		Description: req.Description,
		Gross:       req.Gross.Round(2),
		Method:      req.Method,
		Fee:         saleFee,
		Net:         net,
	}
	id, err := tx.InsertSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.ID = id
	return sale, nil
}

// consumeStock removes qty units and their proportional share of cost.
func (c *core) consumeStock(ctx context.Context, tx store.Tx, itemID int64, qty int, reason string) (domain.InventoryItem, error) {
	if qty <= 0 {
		return domain.InventoryItem{}, store.NewValidationError("quantity must be positive")
	}
	item, err := tx.GetItem(ctx, itemID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if qty > item.Quantity {
		return domain.InventoryItem{}, fmt.Errorf("%w: item %d has %d, requested %d", store.ErrInsufficientStock, item.ID, item.Quantity, qty)
	}

	consumed := item.UnitCost().Mul(decimal.NewFromInt(int64(qty)))
	after := *item
	after.Quantity = item.Quantity - qty
	after.TotalCost = decimal.Max(decimal.Zero, item.TotalCost.Sub(consumed)).Round(2)

	if err := tx.UpdateItem(ctx, after); err != nil {
		return domain.InventoryItem{}, err
	}
	if err := c.recordMovement(ctx, tx, domain.MovementConsume, *item, after, qty, reason); err != nil {
		return domain.InventoryItem{}, err
	}
	return after, nil
}

func (c *core) recordMovement(ctx context.Context, tx store.Tx, kind domain.MovementKind, before domain.InventoryItem, after domain.InventoryItem, qty int, reason string) error {
	return tx.InsertStockMovement(ctx, domain.StockMovement{
		ID:         xid.New("mv"),
		ItemID:     before.ID,
		Kind:       kind,
		Quantity:   qty,
		QtyBefore:  before.Quantity,
		QtyAfter:   after.Quantity,
		CostBefore: before.TotalCost,
		CostAfter:  after.TotalCost,
		Reason:     reason,
		At:         c.now().UTC(),
	})
}
