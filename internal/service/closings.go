package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tillledger/internal/cache"
	"tillledger/internal/domain"
	"tillledger/internal/store"
)

const defaultClosingListLimit = 50

// Closings manages the daily cash closing. A date is open until a closing
// record exists for it; closings are never updated or removed.
type Closings struct {
	*core
	cache    cache.ClosingCache
	cacheTTL time.Duration
}

func newClosings(c *core, closingCache cache.ClosingCache, ttl time.Duration) *Closings {
	if closingCache == nil {
		closingCache = cache.NoopClosingCache{}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Closings{core: c, cache: closingCache, cacheTTL: ttl}
}

func (cl *Closings) Today() domain.Date {
	return cl.today()
}

func (cl *Closings) IsClosed(ctx context.Context, date domain.Date) (bool, error) {
	_, err := cl.GetClosing(ctx, date)
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Preview computes the totals a closing of date would record.
func (cl *Closings) Preview(ctx context.Context, date domain.Date) (domain.CashClosing, error) {
	var preview domain.CashClosing
	err := cl.repo.View(ctx, func(r store.Reader) error {
		var err error
		preview, err = cl.aggregate(ctx, r, date)
		return err
	})
	if err != nil {
		return domain.CashClosing{}, cl.finish("closings", "preview closing", err)
	}
	return preview, nil
}

func (cl *Closings) aggregate(ctx context.Context, r store.Reader, date domain.Date) (domain.CashClosing, error) {
	q := cl.dayQuery(date)
	totals, err := r.SumSales(ctx, q)
	if err != nil {
		return domain.CashClosing{}, err
	}
	byMethod, err := r.SumSalesByMethod(ctx, q)
	if err != nil {
		return domain.CashClosing{}, err
	}

	netOf := func(method domain.PaymentMethod) decimal.Decimal {
		if totals, ok := byMethod[method]; ok {
			return totals.Net.Round(2)
		}
		return decimal.Zero
	}
	return domain.CashClosing{
		Date:    date,
		Gross:   totals.Gross.Round(2),
		Fees:    totals.Fee.Round(2),
		Net:     totals.Net.Round(2),
		CashNet: netOf(domain.PaymentCash),
		CardNet: netOf(domain.PaymentCard),
		PixNet:  netOf(domain.PaymentPix),
	}, nil
}

// CloseManually records the operator's closing with the counted cash. A
// closing of today also clears today's sales, in the same transaction.
func (cl *Closings) CloseManually(ctx context.Context, req domain.ManualCloseRequest) (domain.CashClosing, error) {
	if err := cl.check(req); err != nil {
		return domain.CashClosing{}, err
	}
	today := cl.today()
	if req.Date.IsZero() {
		req.Date = today
	}

	var closing domain.CashClosing
	var cleared int64
	err := cl.repo.RunInTx(ctx, func(tx store.Tx) error {
		if err := ensureOpen(ctx, tx, req.Date); err != nil {
			return err
		}
		agg, err := cl.aggregate(ctx, tx, req.Date)
		if err != nil {
			return err
		}

		counted := req.Counted.Round(2)
		closing = agg
		closing.ClosedAt = cl.now().UTC()
		closing.Counted = decimal.NullDecimal{Decimal: counted, Valid: true}
		closing.Difference = decimal.NullDecimal{Decimal: counted.Sub(agg.Net), Valid: true}
		closing.Note = req.Note
		closing.Automatic = false
		if err := tx.InsertClosing(ctx, closing); err != nil {
			return err
		}

		if req.Date != today {
			return nil
		}
		q := cl.dayQuery(req.Date)
		cleared, err = tx.DeleteSales(ctx, q.From, q.To)
		return err
	})
	if err != nil {
		return domain.CashClosing{}, cl.finish("closings", "close manually", err)
	}

	cl.log.WithFields(logrus.Fields{
		"module":     "closings",
		"date":       closing.Date.String(),
		"net":        closing.Net.StringFixed(2),
		"difference": closing.Difference.Decimal.StringFixed(2),
		"cleared":    cleared,
	}).Info("manual closing recorded")
	cl.remember(ctx, closing)
	return closing, nil
}

// CloseAutomatically closes date without a cash count. Dates already closed
// or without gross sales are left alone and report false.
func (cl *Closings) CloseAutomatically(ctx context.Context, date domain.Date) (domain.CashClosing, bool, error) {
	if date.IsZero() {
		return domain.CashClosing{}, false, store.NewValidationError("date is required")
	}

	var closing domain.CashClosing
	var inserted bool
	err := cl.repo.RunInTx(ctx, func(tx store.Tx) error {
		if err := ensureOpen(ctx, tx, date); err != nil {
			if errors.Is(err, store.ErrAlreadyClosed) {
				return nil
			}
			return err
		}
		agg, err := cl.aggregate(ctx, tx, date)
		if err != nil {
			return err
		}
		if !agg.Gross.IsPositive() {
			return nil
		}

		closing = agg
		closing.ClosedAt = cl.now().UTC()
		closing.Automatic = true
		if err := tx.InsertClosing(ctx, closing); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if errors.Is(err, store.ErrAlreadyClosed) {
		// Another runner closed the date between our check and insert.
		return domain.CashClosing{}, false, nil
	}
	if err != nil {
		return domain.CashClosing{}, false, cl.finish("closings", "close automatically", err)
	}
	if !inserted {
		return domain.CashClosing{}, false, nil
	}

	cl.log.WithFields(logrus.Fields{
		"module": "closings",
		"date":   closing.Date.String(),
		"gross":  closing.Gross.StringFixed(2),
		"net":    closing.Net.StringFixed(2),
	}).Info("automatic closing recorded")
	cl.remember(ctx, closing)
	return closing, true, nil
}

// CheckRollover closes the day before current when the tracked date has
// changed and returns the date to track next. On failure the previous date
// is returned so the next check retries.
func (cl *Closings) CheckRollover(ctx context.Context, previous domain.Date, current domain.Date) (domain.Date, error) {
	if current == previous {
		return current, nil
	}
	if _, _, err := cl.CloseAutomatically(ctx, current.AddDays(-1)); err != nil {
		return previous, err
	}
	return current, nil
}

func (cl *Closings) GetClosing(ctx context.Context, date domain.Date) (domain.CashClosing, error) {
	if cached, ok, err := cl.cache.Get(ctx, date); err != nil {
		cl.log.WithFields(logrus.Fields{"module": "closings", "date": date.String()}).WithError(err).Warn("closing cache read failed")
	} else if ok {
		return *cached, nil
	}

	var closing domain.CashClosing
	err := cl.repo.View(ctx, func(r store.Reader) error {
		found, err := r.GetClosing(ctx, date)
		if err != nil {
			return err
		}
		closing = *found
		return nil
	})
	if err != nil {
		return domain.CashClosing{}, cl.finish("closings", "get closing", err)
	}
	cl.remember(ctx, closing)
	return closing, nil
}

// ListClosings returns the latest closings first. limit <= 0 means 50.
func (cl *Closings) ListClosings(ctx context.Context, limit int) ([]domain.CashClosing, error) {
	if limit <= 0 {
		limit = defaultClosingListLimit
	}
	var closings []domain.CashClosing
	err := cl.repo.View(ctx, func(r store.Reader) error {
		var err error
		closings, err = r.ListClosings(ctx, limit)
		return err
	})
	return closings, cl.finish("closings", "list closings", err)
}

func (cl *Closings) remember(ctx context.Context, closing domain.CashClosing) {
	if err := cl.cache.Set(ctx, &closing, cl.cacheTTL); err != nil {
		cl.log.WithFields(logrus.Fields{"module": "closings", "date": closing.Date.String()}).WithError(err).Warn("closing cache write failed")
	}
}

func ensureOpen(ctx context.Context, tx store.Tx, date domain.Date) error {
	_, err := tx.GetClosing(ctx, date)
	switch {
	case err == nil:
		return store.ErrAlreadyClosed
	case isNotFound(err):
		return nil
	default:
		return err
	}
}
