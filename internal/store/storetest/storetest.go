// Package storetest runs the same behavioural checks against every
// store.Repository implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

// Run executes the repository suite. open must return an empty repository.
func Run(t *testing.T, open func(t *testing.T) store.Repository) {
	t.Run("sales", func(t *testing.T) { testSales(t, open(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("inventory", func(t *testing.T) { testInventory(t, open(t)) })
	t.Run("templates", func(t *testing.T) { testTemplates(t, open(t)) })
	t.Run("closings", func(t *testing.T) { testClosings(t, open(t)) })
}

var day = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func write(t *testing.T, repo store.Repository, fn func(tx store.Tx) error) {
	t.Helper()
	if err := repo.RunInTx(context.Background(), fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func read(t *testing.T, repo store.Repository, fn func(r store.Reader) error) {
	t.Helper()
	if err := repo.View(context.Background(), fn); err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func sale(at time.Time, description string, gross string, method domain.PaymentMethod, fee string) domain.Sale {
	g := dec(gross)
	f := dec(fee)
	return domain.Sale{SoldAt: at, Description: description, Gross: g, Method: method, Fee: f, Net: g.Sub(f)}
}

func testSales(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	var firstID int64
	write(t, repo, func(tx store.Tx) error {
		var err error
		firstID, err = tx.InsertSale(ctx, sale(day.Add(9*time.Hour), "Photo", "50.00", domain.PaymentCash, "0"))
		if err != nil {
			return err
		}
		if _, err := tx.InsertSale(ctx, sale(day.Add(11*time.Hour), "Frame", "150.00", domain.PaymentCard, "8.00")); err != nil {
			return err
		}
		if _, err := tx.InsertSale(ctx, sale(day.Add(12*time.Hour), "Photo", "20.00", domain.PaymentPix, "0")); err != nil {
			return err
		}
		if _, err := tx.InsertSale(ctx, sale(day.Add(8*time.Hour), "  ", "1.00", domain.PaymentCash, "0")); err != nil {
			return err
		}
		_, err = tx.InsertSale(ctx, sale(day.Add(30*time.Hour), "Photo", "10.00", domain.PaymentCash, "0"))
		return err
	})

	q := domain.SaleQuery{From: day, To: day.Add(24 * time.Hour)}
	read(t, repo, func(r store.Reader) error {
		sales, err := r.ListSales(ctx, q)
		if err != nil {
			return err
		}
		if len(sales) != 4 {
			t.Fatalf("expected 4 sales in the day, got %d", len(sales))
		}
		if sales[0].Description != "Photo" || !sales[0].Gross.Equal(dec("20.00")) {
			t.Fatalf("expected newest sale first, got %+v", sales[0])
		}

		totals, err := r.SumSales(ctx, q)
		if err != nil {
			return err
		}
		if totals.Count != 4 || !totals.Gross.Equal(dec("221.00")) || !totals.Net.Equal(dec("213.00")) {
			t.Fatalf("unexpected totals: %+v", totals)
		}

		byMethod, err := r.SumSalesByMethod(ctx, q)
		if err != nil {
			return err
		}
		if len(byMethod) != len(domain.PaymentMethods) {
			t.Fatalf("expected every method in the breakdown, got %v", byMethod)
		}
		if !byMethod[domain.PaymentCard].Net.Equal(dec("142.00")) {
			t.Fatalf("unexpected card net: %s", byMethod[domain.PaymentCard].Net)
		}

		top, err := r.TopDescriptions(ctx, q, 0)
		if err != nil {
			return err
		}
		if len(top) != 2 || top[0].Description != "Photo" || top[0].Count != 2 || !top[0].Gross.Equal(dec("70.00")) {
			t.Fatalf("expected descriptions ranked by count without blanks, got %+v", top)
		}

		got, err := r.GetSale(ctx, firstID)
		if err != nil {
			return err
		}
		if !got.SoldAt.Equal(day.Add(9 * time.Hour)) {
			t.Fatalf("expected sold_at to round-trip, got %s", got.SoldAt)
		}
		return nil
	})

	var deleted int64
	write(t, repo, func(tx store.Tx) error {
		var err error
		deleted, err = tx.DeleteSales(ctx, q.From, q.To)
		return err
	})
	if deleted != 4 {
		t.Fatalf("expected 4 deleted sales, got %d", deleted)
	}
	read(t, repo, func(r store.Reader) error {
		rest, err := r.ListSales(ctx, domain.SaleQuery{})
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			t.Fatalf("expected the next day's sale to remain, got %d", len(rest))
		}
		if _, err := r.GetSale(ctx, firstID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected not found for deleted sale, got %v", err)
		}
		return nil
	})
}

func testRollback(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	boom := errors.New("boom")
	err := repo.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.InsertSale(ctx, sale(day, "Photo", "5.00", domain.PaymentCash, "0")); err != nil {
			return err
		}
		if _, err := tx.InsertItem(ctx, domain.InventoryItem{Name: "Paper", Quantity: 1, TotalCost: dec("1.00")}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error back, got %v", err)
	}
	read(t, repo, func(r store.Reader) error {
		sales, err := r.ListSales(ctx, domain.SaleQuery{})
		if err != nil {
			return err
		}
		items, err := r.ListItems(ctx)
		if err != nil {
			return err
		}
		if len(sales) != 0 || len(items) != 0 {
			t.Fatalf("expected rollback to discard writes, got %d sales and %d items", len(sales), len(items))
		}
		return nil
	})
}

func testInventory(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	var paperID, frameID int64
	write(t, repo, func(tx store.Tx) error {
		var err error
		paperID, err = tx.InsertItem(ctx, domain.InventoryItem{Name: "Paper", Size: "10x15", Quantity: 100, TotalCost: dec("500.00")})
		if err != nil {
			return err
		}
		frameID, err = tx.InsertItem(ctx, domain.InventoryItem{Name: "Frame", Color: "black", Quantity: 3, TotalCost: dec("45.00")})
		return err
	})

	write(t, repo, func(tx store.Tx) error {
		item, err := tx.GetItem(ctx, paperID)
		if err != nil {
			return err
		}
		item.Quantity = 94
		item.TotalCost = dec("470.00")
		if err := tx.UpdateItem(ctx, *item); err != nil {
			return err
		}
		return tx.InsertStockMovement(ctx, domain.StockMovement{
			ID: "mv-1", ItemID: paperID, Kind: domain.MovementConsume, Quantity: 6,
			QtyBefore: 100, QtyAfter: 94, CostBefore: dec("500.00"), CostAfter: dec("470.00"),
			At: day.Add(10 * time.Hour),
		})
	})

	read(t, repo, func(r store.Reader) error {
		items, err := r.ListItems(ctx)
		if err != nil {
			return err
		}
		if len(items) != 2 || items[0].Name != "Frame" {
			t.Fatalf("expected items ordered by name, got %+v", items)
		}
		if items[1].Size != "10x15" || items[0].Color != "black" || items[0].Size != "" {
			t.Fatalf("unexpected optional attributes: %+v", items)
		}

		low, err := r.ListLowStock(ctx, 10)
		if err != nil {
			return err
		}
		if len(low) != 1 || low[0].ID != frameID {
			t.Fatalf("expected only the frame under the threshold, got %+v", low)
		}

		totals, err := r.InventoryTotals(ctx, 10)
		if err != nil {
			return err
		}
		if totals.Items != 2 || totals.Quantity != 97 || !totals.Value.Equal(dec("515.00")) || totals.Critical != 1 {
			t.Fatalf("unexpected inventory totals: %+v", totals)
		}

		movements, err := r.ListStockMovements(ctx, paperID, 0)
		if err != nil {
			return err
		}
		if len(movements) != 1 || movements[0].Kind != domain.MovementConsume || !movements[0].CostAfter.Equal(dec("470.00")) {
			t.Fatalf("unexpected movements: %+v", movements)
		}
		return nil
	})

	write(t, repo, func(tx store.Tx) error {
		return tx.DeleteItem(ctx, frameID)
	})
	err := repo.RunInTx(ctx, func(tx store.Tx) error {
		return tx.DeleteItem(ctx, frameID)
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}
}

func testTemplates(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	var itemID, copyID int64
	write(t, repo, func(tx store.Tx) error {
		var err error
		itemID, err = tx.InsertItem(ctx, domain.InventoryItem{Name: "Paper", Quantity: 10, TotalCost: dec("10.00")})
		if err != nil {
			return err
		}
		if _, err := tx.InsertTemplate(ctx, domain.SaleTemplate{
			Name: "photo 10x15", Price: dec("12.50"), Size: "10x15", Icon: domain.IconPhoto, Tag: "photo",
			InventoryItemID: &itemID, ConsumptionQty: 2, Active: true,
		}); err != nil {
			return err
		}
		copyID, err = tx.InsertTemplate(ctx, domain.SaleTemplate{
			Name: "Document copy", Price: dec("1.00"), Icon: domain.IconDocument, ConsumptionQty: 1, Active: false,
		})
		return err
	})

	read(t, repo, func(r store.Reader) error {
		all, err := r.ListTemplates(ctx, domain.TemplateQuery{})
		if err != nil {
			return err
		}
		if len(all) != 2 || all[0].ID != copyID {
			t.Fatalf("expected templates ordered by name ignoring case, got %+v", all)
		}
		active, err := r.ListTemplates(ctx, domain.TemplateQuery{ActiveOnly: true, Tag: "photo"})
		if err != nil {
			return err
		}
		if len(active) != 1 || active[0].InventoryItemID == nil || *active[0].InventoryItemID != itemID {
			t.Fatalf("unexpected active templates: %+v", active)
		}
		byName, err := r.ListTemplates(ctx, domain.TemplateQuery{Name: "DOCUMENT COPY"})
		if err != nil {
			return err
		}
		if len(byName) != 1 || byName[0].Tag != "" {
			t.Fatalf("unexpected name lookup: %+v", byName)
		}
		count, err := r.CountTemplates(ctx)
		if err != nil {
			return err
		}
		if count != 2 {
			t.Fatalf("expected 2 templates, got %d", count)
		}
		return nil
	})

	var unlinked int64
	write(t, repo, func(tx store.Tx) error {
		var err error
		unlinked, err = tx.UnlinkTemplates(ctx, itemID)
		return err
	})
	if unlinked != 1 {
		t.Fatalf("expected one unlinked template, got %d", unlinked)
	}
	read(t, repo, func(r store.Reader) error {
		linked, err := r.ListTemplates(ctx, domain.TemplateQuery{Tag: "photo"})
		if err != nil {
			return err
		}
		if linked[0].InventoryItemID != nil {
			t.Fatalf("expected the link to be cleared")
		}
		return nil
	})
}

func testClosings(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	first := domain.DateOf(day, time.UTC)
	closing := domain.CashClosing{
		Date: first, ClosedAt: day.Add(20 * time.Hour),
		Gross: dec("200.00"), Fees: dec("8.00"), Net: dec("192.00"),
		CashNet: dec("50.00"), CardNet: dec("142.00"), PixNet: decimal.Zero,
		Counted:    decimal.NullDecimal{Decimal: dec("190.00"), Valid: true},
		Difference: decimal.NullDecimal{Decimal: dec("-2.00"), Valid: true},
		Note:       "short",
	}
	write(t, repo, func(tx store.Tx) error {
		if err := tx.InsertClosing(ctx, closing); err != nil {
			return err
		}
		return tx.InsertClosing(ctx, domain.CashClosing{
			Date: first.AddDays(1), ClosedAt: day.Add(44 * time.Hour),
			Gross: dec("10.00"), Fees: decimal.Zero, Net: dec("10.00"),
			CashNet: dec("10.00"), CardNet: decimal.Zero, PixNet: decimal.Zero,
			Automatic: true,
		})
	})

	err := repo.RunInTx(ctx, func(tx store.Tx) error {
		return tx.InsertClosing(ctx, closing)
	})
	if !errors.Is(err, store.ErrAlreadyClosed) {
		t.Fatalf("expected already closed on duplicate date, got %v", err)
	}

	read(t, repo, func(r store.Reader) error {
		got, err := r.GetClosing(ctx, first)
		if err != nil {
			return err
		}
		if !got.Difference.Valid || !got.Difference.Decimal.Equal(dec("-2.00")) || got.Note != "short" || got.Automatic {
			t.Fatalf("unexpected closing: %+v", got)
		}
		list, err := r.ListClosings(ctx, 1)
		if err != nil {
			return err
		}
		if len(list) != 1 || list[0].Date != first.AddDays(1) || list[0].Counted.Valid {
			t.Fatalf("expected the latest automatic closing first, got %+v", list)
		}
		if _, err := r.GetClosing(ctx, first.AddDays(2)); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected not found for an open date, got %v", err)
		}
		return nil
	})
}
