package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

// Sales is the sale ledger.
type Sales struct {
	*core
}

func (s *Sales) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}

	var sale domain.Sale
	err := s.repo.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		sale, err = s.insertSale(ctx, tx, req)
		return err
	})
	if err != nil {
		return domain.Sale{}, s.finish("sales", "record sale", err)
	}

	s.log.WithFields(logrus.Fields{"module": "sales", "sale": sale.ID, "method": sale.Method}).
		Debugf("sale recorded gross=%s net=%s", sale.Gross.StringFixed(2), sale.Net.StringFixed(2))
	return sale, nil
}

// UpdateSale overwrites description, amount and method. The original
// timestamp is kept unless req.SoldAt is set.
func (s *Sales) UpdateSale(ctx context.Context, id int64, req domain.SaleRequest) (domain.Sale, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}
	saleFee, net, err := s.fees.Split(req.Gross, req.Method)
	if err != nil {
		return domain.Sale{}, err
	}

	var updated domain.Sale
	err = s.repo.RunInTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetSale(ctx, id)
		if err != nil {
			return err
		}
		updated = *existing
		updated.Description = req.Description
		updated.Gross = req.Gross.Round(2)
		updated.Method = req.Method
		updated.Fee = saleFee
		updated.Net = net
		if !req.SoldAt.IsZero() {
			updated.SoldAt = req.SoldAt.UTC()
		}
		return tx.UpdateSale(ctx, updated)
	})
	if err != nil {
		return domain.Sale{}, s.finish("sales", "update sale", err)
	}
	return updated, nil
}

func (s *Sales) RemoveSale(ctx context.Context, id int64) error {
	err := s.repo.RunInTx(ctx, func(tx store.Tx) error {
		return tx.DeleteSale(ctx, id)
	})
	return s.finish("sales", "remove sale", err)
}

func (s *Sales) Get(ctx context.Context, id int64) (domain.Sale, error) {
	var sale domain.Sale
	err := s.repo.View(ctx, func(r store.Reader) error {
		found, err := r.GetSale(ctx, id)
		if err != nil {
			return err
		}
		sale = *found
		return nil
	})
	return sale, s.finish("sales", "get sale", err)
}

func (s *Sales) List(ctx context.Context, q domain.SaleQuery) ([]domain.Sale, error) {
	var sales []domain.Sale
	err := s.repo.View(ctx, func(r store.Reader) error {
		var err error
		sales, err = r.ListSales(ctx, q)
		return err
	})
	return sales, s.finish("sales", "list sales", err)
}

func (s *Sales) ListAll(ctx context.Context) ([]domain.Sale, error) {
	return s.List(ctx, domain.SaleQuery{})
}

func (s *Sales) ListRecent(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		return nil, store.NewValidationError("limit must be positive")
	}
	return s.List(ctx, domain.SaleQuery{Limit: limit})
}

func (s *Sales) ListByDay(ctx context.Context, date domain.Date) ([]domain.Sale, error) {
	return s.List(ctx, s.DayQuery(date))
}

func (s *Sales) ListByPeriod(ctx context.Context, start domain.Date, end domain.Date) ([]domain.Sale, error) {
	q, err := s.PeriodQuery(start, end)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, q)
}

func (s *Sales) Today() domain.Date {
	return s.today()
}

// DayQuery covers one calendar day in the till's location.
func (s *Sales) DayQuery(date domain.Date) domain.SaleQuery {
	return s.dayQuery(date)
}

// PeriodQuery covers start through end, both inclusive.
func (s *Sales) PeriodQuery(start domain.Date, end domain.Date) (domain.SaleQuery, error) {
	if start.IsZero() || end.IsZero() {
		return domain.SaleQuery{}, store.NewValidationError("period bounds are required")
	}
	if end.Before(start) {
		return domain.SaleQuery{}, store.NewValidationError("period start must not be after end")
	}
	return domain.SaleQuery{From: start.Start(s.loc).UTC(), To: end.End(s.loc).UTC()}, nil
}

func (s *Sales) Totals(ctx context.Context, q domain.SaleQuery) (domain.SaleTotals, error) {
	var totals domain.SaleTotals
	err := s.repo.View(ctx, func(r store.Reader) error {
		var err error
		totals, err = r.SumSales(ctx, q)
		return err
	})
	return totals, s.finish("sales", "sum sales", err)
}

func (s *Sales) TotalsToday(ctx context.Context) (domain.SaleTotals, error) {
	return s.Totals(ctx, s.DayQuery(s.today()))
}

func (s *Sales) TotalsByMethod(ctx context.Context, q domain.SaleQuery) (map[domain.PaymentMethod]domain.SaleTotals, error) {
	var byMethod map[domain.PaymentMethod]domain.SaleTotals
	err := s.repo.View(ctx, func(r store.Reader) error {
		var err error
		byMethod, err = r.SumSalesByMethod(ctx, q)
		return err
	})
	return byMethod, s.finish("sales", "sum sales by method", err)
}

func (s *Sales) TodaySummary(ctx context.Context) (domain.TodaySummary, error) {
	today := s.today()
	byMethod, err := s.TotalsByMethod(ctx, s.DayQuery(today))
	if err != nil {
		return domain.TodaySummary{}, err
	}

	summary := domain.TodaySummary{
		Date:     today,
		Net:      decimal.Zero,
		NetByPay: make(map[domain.PaymentMethod]decimal.Decimal, len(domain.PaymentMethods)),
	}
	for _, method := range domain.PaymentMethods {
		totals := byMethod[method]
		summary.Count += totals.Count
		summary.Net = summary.Net.Add(totals.Net)
		summary.NetByPay[method] = totals.Net.Round(2)
	}
	return summary, nil
}

// MethodShare is the percentage of gross taken by method, 0 when nothing sold.
func (s *Sales) MethodShare(ctx context.Context, q domain.SaleQuery, method domain.PaymentMethod) (decimal.Decimal, error) {
	if !method.Valid() {
		return decimal.Zero, store.NewValidationError("unknown payment method")
	}
	q.Method = ""
	byMethod, err := s.TotalsByMethod(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, totals := range byMethod {
		total = total.Add(totals.Gross)
	}
	if total.IsZero() {
		return decimal.Zero, nil
	}
	return byMethod[method].Gross.Div(total).Mul(decimal.NewFromInt(100)).Round(2), nil
}

// DailyNetSeries returns one point per day for the last days days, oldest
// first, including days without sales.
func (s *Sales) DailyNetSeries(ctx context.Context, days int) ([]domain.DailyPoint, error) {
	if days <= 0 {
		return nil, store.NewValidationError("days must be positive")
	}
	end := s.today()
	start := end.AddDays(-(days - 1))
	q, err := s.PeriodQuery(start, end)
	if err != nil {
		return nil, err
	}
	sales, err := s.List(ctx, q)
	if err != nil {
		return nil, err
	}

	byDay := make(map[domain.Date]decimal.Decimal, days)
	for _, sale := range sales {
		day := domain.DateOf(sale.SoldAt, s.loc)
		byDay[day] = byDay[day].Add(sale.Net)
	}
	series := make([]domain.DailyPoint, 0, days)
	for day := start; !end.Before(day); day = day.AddDays(1) {
		series = append(series, domain.DailyPoint{Date: day, Net: byDay[day].Round(2)})
	}
	return series, nil
}

// SalesByHour buckets the net of date's sales by local hour.
func (s *Sales) SalesByHour(ctx context.Context, date domain.Date) ([24]domain.HourBucket, error) {
	var buckets [24]domain.HourBucket
	for hour := range buckets {
		buckets[hour] = domain.HourBucket{Hour: hour, Net: decimal.Zero}
	}
	sales, err := s.ListByDay(ctx, date)
	if err != nil {
		return buckets, err
	}
	for _, sale := range sales {
		hour := sale.SoldAt.In(s.loc).Hour()
		buckets[hour].Count++
		buckets[hour].Net = buckets[hour].Net.Add(sale.Net)
	}
	return buckets, nil
}

// TopDescriptions ranks descriptions by number of sales, then gross.
// Blank descriptions are left out.
func (s *Sales) TopDescriptions(ctx context.Context, q domain.SaleQuery, limit int) ([]domain.DescriptionTotal, error) {
	if limit <= 0 {
		return nil, store.NewValidationError("limit must be positive")
	}
	var top []domain.DescriptionTotal
	err := s.repo.View(ctx, func(r store.Reader) error {
		var err error
		top, err = r.TopDescriptions(ctx, q, limit)
		return err
	})
	return top, s.finish("sales", "top descriptions", err)
}

// ClearDay deletes every sale of date. It cannot be undone.
func (s *Sales) ClearDay(ctx context.Context, date domain.Date) (int64, error) {
	var removed int64
	q := s.DayQuery(date)
	err := s.repo.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		removed, err = tx.DeleteSales(ctx, q.From, q.To)
		return err
	})
	if err != nil {
		return 0, s.finish("sales", "clear day", err)
	}
	s.log.WithFields(logrus.Fields{"module": "sales", "date": date.String(), "removed": removed}).Warn("sales cleared")
	return removed, nil
}

func (s *Sales) ClearToday(ctx context.Context) (int64, error) {
	return s.ClearDay(ctx, s.today())
}
