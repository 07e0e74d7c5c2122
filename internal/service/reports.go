package service

import (
	"context"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

const homeRecentSales = 10

// PeriodReport totals start through end and lists the sales. The daily
// average spreads the net over every day of the period, sales or not.
func (s *Sales) PeriodReport(ctx context.Context, start domain.Date, end domain.Date) (domain.PeriodReport, error) {
	q, err := s.PeriodQuery(start, end)
	if err != nil {
		return domain.PeriodReport{}, err
	}

	report := domain.PeriodReport{From: start, To: end}
	err = s.repo.View(ctx, func(r store.Reader) error {
		totals, err := r.SumSales(ctx, q)
		if err != nil {
			return err
		}
		report.Sales, err = r.ListSales(ctx, q)
		if err != nil {
			return err
		}
		report.Count = totals.Count
		report.Gross = totals.Gross.Round(2)
		report.Fees = totals.Fee.Round(2)
		report.Net = totals.Net.Round(2)
		return nil
	})
	if err != nil {
		return domain.PeriodReport{}, s.finish("sales", "period report", err)
	}

	days := start.DaysUntil(end) + 1
	report.DailyAverage = report.Net.Div(decimal.NewFromInt(int64(days))).Round(2)
	return report, nil
}

func (s *Sales) CurrentMonthReport(ctx context.Context) (domain.PeriodReport, error) {
	first, last := s.today().MonthBounds()
	return s.PeriodReport(ctx, first, last)
}

func (s *Sales) PreviousMonthReport(ctx context.Context) (domain.PeriodReport, error) {
	first, _ := s.today().MonthBounds()
	prevFirst, prevLast := first.AddDays(-1).MonthBounds()
	return s.PeriodReport(ctx, prevFirst, prevLast)
}

// ComparePeriods reports how the net of the second period moved against the first.
func (s *Sales) ComparePeriods(ctx context.Context, firstStart, firstEnd, secondStart, secondEnd domain.Date) (domain.PeriodComparison, error) {
	firstQ, err := s.PeriodQuery(firstStart, firstEnd)
	if err != nil {
		return domain.PeriodComparison{}, err
	}
	secondQ, err := s.PeriodQuery(secondStart, secondEnd)
	if err != nil {
		return domain.PeriodComparison{}, err
	}

	var firstTotals, secondTotals domain.SaleTotals
	err = s.repo.View(ctx, func(r store.Reader) error {
		var err error
		if firstTotals, err = r.SumSales(ctx, firstQ); err != nil {
			return err
		}
		secondTotals, err = r.SumSales(ctx, secondQ)
		return err
	})
	if err != nil {
		return domain.PeriodComparison{}, s.finish("sales", "compare periods", err)
	}

	comparison := domain.PeriodComparison{
		FirstFrom:  firstStart,
		FirstTo:    firstEnd,
		FirstNet:   firstTotals.Net.Round(2),
		SecondFrom: secondStart,
		SecondTo:   secondEnd,
		SecondNet:  secondTotals.Net.Round(2),
		Percent:    decimal.Zero,
	}
	comparison.Difference = comparison.SecondNet.Sub(comparison.FirstNet)
	if comparison.FirstNet.IsPositive() {
		comparison.Percent = comparison.Difference.Div(comparison.FirstNet).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return comparison, nil
}

// Dashboard reads across the sale and stock ledgers for the home screen.
type Dashboard struct {
	sales     *Sales
	inventory *Inventory
}

func (d *Dashboard) Alerts(ctx context.Context) (domain.Alerts, error) {
	report, err := d.inventory.Report(ctx)
	if err != nil {
		return domain.Alerts{}, err
	}
	today, err := d.sales.TotalsToday(ctx)
	if err != nil {
		return domain.Alerts{}, err
	}
	return domain.Alerts{
		LowStock:      report.Critical > 0,
		CriticalItems: report.Critical,
		NoSalesToday:  today.Count == 0,
	}, nil
}

func (d *Dashboard) Home(ctx context.Context) (domain.HomeSummary, error) {
	today, err := d.sales.TotalsToday(ctx)
	if err != nil {
		return domain.HomeSummary{}, err
	}
	allTime, err := d.sales.Totals(ctx, domain.SaleQuery{})
	if err != nil {
		return domain.HomeSummary{}, err
	}
	low, err := d.inventory.LowStock(ctx)
	if err != nil {
		return domain.HomeSummary{}, err
	}
	recent, err := d.sales.ListRecent(ctx, homeRecentSales)
	if err != nil {
		return domain.HomeSummary{}, err
	}
	return domain.HomeSummary{
		TodayCount:    today.Count,
		TodayNet:      today.Net.Round(2),
		AllTimeNet:    allTime.Net.Round(2),
		CriticalItems: int64(len(low)),
		LowStock:      low,
		RecentSales:   recent,
	}, nil
}
