package sqlstore

import (
	"context"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

const closingColumns = `business_date, closed_at, gross, fees, net, cash_net, card_net, pix_net,
	counted_amount, difference, COALESCE(note, '') AS note, automatic`

func (c *conn) GetClosing(ctx context.Context, date domain.Date) (*domain.CashClosing, error) {
	var closing domain.CashClosing
	if err := c.get(ctx, "get closing", &closing, `SELECT `+closingColumns+` FROM cash_closings WHERE business_date = ?`, date); err != nil {
		return nil, err
	}
	return normalizeClosing(closing), nil
}

func (c *conn) ListClosings(ctx context.Context, limit int) ([]domain.CashClosing, error) {
	query := `SELECT ` + closingColumns + ` FROM cash_closings ORDER BY business_date DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	closings := make([]domain.CashClosing, 0, 32)
	if err := c.selectAll(ctx, "list closings", &closings, query, args...); err != nil {
		return nil, err
	}
	for i := range closings {
		closings[i] = *normalizeClosing(closings[i])
	}
	return closings, nil
}

func (c *conn) InsertClosing(ctx context.Context, cl domain.CashClosing) error {
	_, err := c.ext.ExecContext(ctx, c.ext.Rebind(`
		INSERT INTO cash_closings (business_date, closed_at, gross, fees, net, cash_net, card_net, pix_net,
			counted_amount, difference, note, automatic)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		cl.Date, utc(cl.ClosedAt), cl.Gross, cl.Fees, cl.Net, cl.CashNet, cl.CardNet, cl.PixNet,
		cl.Counted, cl.Difference, nullIfEmpty(cl.Note), cl.Automatic)
	if err != nil {
		if c.dialect.IsUniqueViolation(err) {
			return store.ErrAlreadyClosed
		}
		return store.Failure("insert closing", err)
	}
	return nil
}

func normalizeClosing(cl domain.CashClosing) *domain.CashClosing {
	cl.ClosedAt = cl.ClosedAt.UTC()
	cl.Gross = round2(cl.Gross)
	cl.Fees = round2(cl.Fees)
	cl.Net = round2(cl.Net)
	cl.CashNet = round2(cl.CashNet)
	cl.CardNet = round2(cl.CardNet)
	cl.PixNet = round2(cl.PixNet)
	if cl.Counted.Valid {
		cl.Counted.Decimal = round2(cl.Counted.Decimal)
	}
	if cl.Difference.Valid {
		cl.Difference.Decimal = round2(cl.Difference.Decimal)
	}
	return &cl
}
