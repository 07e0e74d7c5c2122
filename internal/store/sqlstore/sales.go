package sqlstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
)

const saleColumns = `id, sold_at, description, gross, method, fee, net`

func (c *conn) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	if err := c.get(ctx, "get sale", &sale, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return normalizeSale(sale), nil
}

func (c *conn) ListSales(ctx context.Context, q domain.SaleQuery) ([]domain.Sale, error) {
	where, args := saleWhere(q)
	query := `SELECT ` + saleColumns + ` FROM sales` + where + ` ORDER BY sold_at DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	sales := make([]domain.Sale, 0, 64)
	if err := c.selectAll(ctx, "list sales", &sales, query, args...); err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i] = *normalizeSale(sales[i])
	}
	return sales, nil
}

func (c *conn) SumSales(ctx context.Context, q domain.SaleQuery) (domain.SaleTotals, error) {
	where, args := saleWhere(q)
	var totals domain.SaleTotals
	err := c.get(ctx, "sum sales", &totals, `
		SELECT COUNT(*) AS sale_count,
			COALESCE(SUM(gross), 0) AS gross,
			COALESCE(SUM(fee), 0) AS fee,
			COALESCE(SUM(net), 0) AS net
		FROM sales`+where, args...)
	if err != nil {
		return domain.SaleTotals{}, err
	}
	totals.Gross = round2(totals.Gross)
	totals.Fee = round2(totals.Fee)
	totals.Net = round2(totals.Net)
	return totals, nil
}

func (c *conn) SumSalesByMethod(ctx context.Context, q domain.SaleQuery) (map[domain.PaymentMethod]domain.SaleTotals, error) {
	where, args := saleWhere(q)
	rows := make([]struct {
		Method domain.PaymentMethod `db:"method"`
		domain.SaleTotals
	}, 0, len(domain.PaymentMethods))
	err := c.selectAll(ctx, "sum sales by method", &rows, `
		SELECT method,
			COUNT(*) AS sale_count,
			COALESCE(SUM(gross), 0) AS gross,
			COALESCE(SUM(fee), 0) AS fee,
			COALESCE(SUM(net), 0) AS net
		FROM sales`+where+`
		GROUP BY method`, args...)
	if err != nil {
		return nil, err
	}

	out := make(map[domain.PaymentMethod]domain.SaleTotals, len(domain.PaymentMethods))
	for _, method := range domain.PaymentMethods {
		if q.Method == "" || q.Method == method {
			out[method] = domain.SaleTotals{Gross: decimal.Zero, Fee: decimal.Zero, Net: decimal.Zero}
		}
	}
	for _, row := range rows {
		out[row.Method] = domain.SaleTotals{
			Count: row.Count,
			Gross: round2(row.Gross),
			Fee:   round2(row.Fee),
			Net:   round2(row.Net),
		}
	}
	return out, nil
}

func (c *conn) TopDescriptions(ctx context.Context, q domain.SaleQuery, limit int) ([]domain.DescriptionTotal, error) {
	where, args := saleWhere(q)
	if where == "" {
		where = " WHERE TRIM(description) <> ''"
	} else {
		where += " AND TRIM(description) <> ''"
	}
	query := `
		SELECT description, COUNT(*) AS sale_count, COALESCE(SUM(gross), 0) AS gross
		FROM sales` + where + `
		GROUP BY description
		ORDER BY COUNT(*) DESC, SUM(gross) DESC, description`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	out := make([]domain.DescriptionTotal, 0, 16)
	if err := c.selectAll(ctx, "top descriptions", &out, query, args...); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Gross = round2(out[i].Gross)
	}
	return out, nil
}

func (c *conn) InsertSale(ctx context.Context, sale domain.Sale) (int64, error) {
	return c.insertReturningID(ctx, "insert sale", `
		INSERT INTO sales (sold_at, description, gross, method, fee, net)
		VALUES (?, ?, ?, ?, ?, ?)`,
		utc(sale.SoldAt), sale.Description, sale.Gross, sale.Method, sale.Fee, sale.Net)
}

func (c *conn) UpdateSale(ctx context.Context, sale domain.Sale) error {
	return c.execOne(ctx, "update sale", `
		UPDATE sales
		SET sold_at = ?, description = ?, gross = ?, method = ?, fee = ?, net = ?
		WHERE id = ?`,
		utc(sale.SoldAt), sale.Description, sale.Gross, sale.Method, sale.Fee, sale.Net, sale.ID)
}

func (c *conn) DeleteSale(ctx context.Context, id int64) error {
	return c.execOne(ctx, "delete sale", `DELETE FROM sales WHERE id = ?`, id)
}

func (c *conn) DeleteSales(ctx context.Context, from time.Time, to time.Time) (int64, error) {
	where, args := saleWhere(domain.SaleQuery{From: from, To: to})
	return c.exec(ctx, "delete sales", `DELETE FROM sales`+where, args...)
}

func normalizeSale(sale domain.Sale) *domain.Sale {
	sale.SoldAt = sale.SoldAt.UTC()
	sale.Gross = round2(sale.Gross)
	sale.Fee = round2(sale.Fee)
	sale.Net = round2(sale.Net)
	return &sale
}
