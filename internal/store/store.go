package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tillledger/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyClosed     = errors.New("date already closed")
	ErrValidation        = errors.New("validation failed")
	// ErrStoreFailure marks an underlying persistence error. The driver
	// error stays reachable through errors.Is/As.
	ErrStoreFailure = errors.New("store failure")
)

type ValidationError struct {
	Err     error
	Details []string
}

func NewValidationError(details ...string) *ValidationError {
	return &ValidationError{Err: ErrValidation, Details: details}
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), strings.Join(e.Details, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Failure wraps err as a store failure unless it already carries one of the
// domain sentinels.
func Failure(op string, err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrAlreadyClosed) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrStoreFailure)
}

type Reader interface {
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	ListSales(ctx context.Context, q domain.SaleQuery) ([]domain.Sale, error)
	SumSales(ctx context.Context, q domain.SaleQuery) (domain.SaleTotals, error)
	SumSalesByMethod(ctx context.Context, q domain.SaleQuery) (map[domain.PaymentMethod]domain.SaleTotals, error)
	TopDescriptions(ctx context.Context, q domain.SaleQuery, limit int) ([]domain.DescriptionTotal, error)

	GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error)
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
	ListLowStock(ctx context.Context, threshold int) ([]domain.InventoryItem, error)
	InventoryTotals(ctx context.Context, threshold int) (domain.InventoryTotals, error)
	ListStockMovements(ctx context.Context, itemID int64, limit int) ([]domain.StockMovement, error)

	GetTemplate(ctx context.Context, id int64) (*domain.SaleTemplate, error)
	ListTemplates(ctx context.Context, q domain.TemplateQuery) ([]domain.SaleTemplate, error)
	CountTemplates(ctx context.Context) (int64, error)

	GetClosing(ctx context.Context, date domain.Date) (*domain.CashClosing, error)
	ListClosings(ctx context.Context, limit int) ([]domain.CashClosing, error)
}

type Tx interface {
	Reader

	InsertSale(ctx context.Context, sale domain.Sale) (int64, error)
	UpdateSale(ctx context.Context, sale domain.Sale) error
	DeleteSale(ctx context.Context, id int64) error
	DeleteSales(ctx context.Context, from time.Time, to time.Time) (int64, error)

	InsertItem(ctx context.Context, item domain.InventoryItem) (int64, error)
	// UpdateItem overwrites every column of the item row.
	UpdateItem(ctx context.Context, item domain.InventoryItem) error
	DeleteItem(ctx context.Context, id int64) error
	InsertStockMovement(ctx context.Context, movement domain.StockMovement) error

	InsertTemplate(ctx context.Context, tpl domain.SaleTemplate) (int64, error)
	UpdateTemplate(ctx context.Context, tpl domain.SaleTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error
	UnlinkTemplates(ctx context.Context, itemID int64) (int64, error)

	// InsertClosing returns ErrAlreadyClosed when a closing exists for the date.
	InsertClosing(ctx context.Context, closing domain.CashClosing) error
}

type Repository interface {
	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(r Reader) error) error
	Close() error
}
