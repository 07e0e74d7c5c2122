package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

// Store keeps the ledger in process memory. Each transaction works on a
// copy of the state that replaces the live state only on commit.
type Store struct {
	mu sync.RWMutex
	st *state
}

type state struct {
	nextSaleID     int64
	nextItemID     int64
	nextTemplateID int64
	sales          map[int64]domain.Sale
	items          map[int64]domain.InventoryItem
	templates      map[int64]domain.SaleTemplate
	closings       map[domain.Date]domain.CashClosing
	movements      []domain.StockMovement
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		sales:     map[int64]domain.Sale{},
		items:     map[int64]domain.InventoryItem{},
		templates: map[int64]domain.SaleTemplate{},
		closings:  map[domain.Date]domain.CashClosing{},
	}}
}

func (s *Store) RunInTx(_ context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) View(_ context.Context, fn func(r store.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) Close() error {
	return nil
}

func (st *state) clone() *state {
	out := *st
	out.sales = maps.Clone(st.sales)
	out.items = maps.Clone(st.items)
	out.closings = maps.Clone(st.closings)
	out.movements = slices.Clone(st.movements)
	out.templates = make(map[int64]domain.SaleTemplate, len(st.templates))
	for id, tpl := range st.templates {
		out.templates[id] = copyTemplate(tpl)
	}
	return &out
}

func copyTemplate(tpl domain.SaleTemplate) domain.SaleTemplate {
	if tpl.InventoryItemID != nil {
		itemID := *tpl.InventoryItemID
		tpl.InventoryItemID = &itemID
	}
	return tpl
}

func matchSale(sale domain.Sale, q domain.SaleQuery) bool {
	if !q.From.IsZero() && sale.SoldAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !sale.SoldAt.Before(q.To) {
		return false
	}
	if q.Method != "" && sale.Method != q.Method {
		return false
	}
	return true
}

func (st *state) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	sale, ok := st.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sale, nil
}

func (st *state) ListSales(_ context.Context, q domain.SaleQuery) ([]domain.Sale, error) {
	out := make([]domain.Sale, 0, len(st.sales))
	for _, sale := range st.sales {
		if matchSale(sale, q) {
			out = append(out, sale)
		}
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		if c := b.SoldAt.Compare(a.SoldAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (st *state) SumSales(_ context.Context, q domain.SaleQuery) (domain.SaleTotals, error) {
	totals := domain.SaleTotals{Gross: decimal.Zero, Fee: decimal.Zero, Net: decimal.Zero}
	for _, sale := range st.sales {
		if !matchSale(sale, q) {
			continue
		}
		totals.Count++
		totals.Gross = totals.Gross.Add(sale.Gross)
		totals.Fee = totals.Fee.Add(sale.Fee)
		totals.Net = totals.Net.Add(sale.Net)
	}
	return totals, nil
}

func (st *state) SumSalesByMethod(ctx context.Context, q domain.SaleQuery) (map[domain.PaymentMethod]domain.SaleTotals, error) {
	out := make(map[domain.PaymentMethod]domain.SaleTotals, len(domain.PaymentMethods))
	for _, method := range domain.PaymentMethods {
		if q.Method != "" && q.Method != method {
			continue
		}
		byMethod := q
		byMethod.Method = method
		totals, err := st.SumSales(ctx, byMethod)
		if err != nil {
			return nil, err
		}
		out[method] = totals
	}
	return out, nil
}

func (st *state) TopDescriptions(_ context.Context, q domain.SaleQuery, limit int) ([]domain.DescriptionTotal, error) {
	grouped := map[string]domain.DescriptionTotal{}
	for _, sale := range st.sales {
		if !matchSale(sale, q) || strings.TrimSpace(sale.Description) == "" {
			continue
		}
		entry, ok := grouped[sale.Description]
		if !ok {
			entry = domain.DescriptionTotal{Description: sale.Description, Gross: decimal.Zero}
		}
		entry.Count++
		entry.Gross = entry.Gross.Add(sale.Gross)
		grouped[sale.Description] = entry
	}

	out := slices.Collect(maps.Values(grouped))
	slices.SortFunc(out, func(a, b domain.DescriptionTotal) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			b.Gross.Cmp(a.Gross),
			strings.Compare(a.Description, b.Description),
		)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (st *state) GetItem(_ context.Context, id int64) (*domain.InventoryItem, error) {
	item, ok := st.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (st *state) ListItems(_ context.Context) ([]domain.InventoryItem, error) {
	out := slices.Collect(maps.Values(st.items))
	slices.SortFunc(out, func(a, b domain.InventoryItem) int {
		return cmp.Or(
			strings.Compare(a.Name, b.Name),
			strings.Compare(a.Color, b.Color),
			strings.Compare(a.Size, b.Size),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (st *state) ListLowStock(_ context.Context, threshold int) ([]domain.InventoryItem, error) {
	out := make([]domain.InventoryItem, 0)
	for _, item := range st.items {
		if item.Quantity <= threshold {
			out = append(out, item)
		}
	}
	slices.SortFunc(out, func(a, b domain.InventoryItem) int {
		return cmp.Or(
			cmp.Compare(a.Quantity, b.Quantity),
			strings.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (st *state) InventoryTotals(_ context.Context, threshold int) (domain.InventoryTotals, error) {
	totals := domain.InventoryTotals{Value: decimal.Zero}
	for _, item := range st.items {
		totals.Items++
		totals.Quantity += int64(item.Quantity)
		totals.Value = totals.Value.Add(item.TotalCost)
		if item.Quantity <= threshold {
			totals.Critical++
		}
	}
	return totals, nil
}

func (st *state) ListStockMovements(_ context.Context, itemID int64, limit int) ([]domain.StockMovement, error) {
	out := make([]domain.StockMovement, 0)
	for i := len(st.movements) - 1; i >= 0; i-- {
		movement := st.movements[i]
		if itemID != 0 && movement.ItemID != itemID {
			continue
		}
		out = append(out, movement)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (st *state) GetTemplate(_ context.Context, id int64) (*domain.SaleTemplate, error) {
	tpl, ok := st.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	tpl = copyTemplate(tpl)
	return &tpl, nil
}

func (st *state) ListTemplates(_ context.Context, q domain.TemplateQuery) ([]domain.SaleTemplate, error) {
	out := make([]domain.SaleTemplate, 0, len(st.templates))
	for _, tpl := range st.templates {
		if q.ActiveOnly && !tpl.Active {
			continue
		}
		if q.Tag != "" && tpl.Tag != q.Tag {
			continue
		}
		if q.Name != "" && !strings.EqualFold(tpl.Name, q.Name) {
			continue
		}
		out = append(out, copyTemplate(tpl))
	}
	slices.SortFunc(out, func(a, b domain.SaleTemplate) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (st *state) CountTemplates(_ context.Context) (int64, error) {
	return int64(len(st.templates)), nil
}

func (st *state) GetClosing(_ context.Context, date domain.Date) (*domain.CashClosing, error) {
	closing, ok := st.closings[date]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &closing, nil
}

func (st *state) ListClosings(_ context.Context, limit int) ([]domain.CashClosing, error) {
	out := slices.Collect(maps.Values(st.closings))
	slices.SortFunc(out, func(a, b domain.CashClosing) int {
		switch {
		case a.Date == b.Date:
			return 0
		case b.Date.Before(a.Date):
			return -1
		default:
			return 1
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (st *state) InsertSale(_ context.Context, sale domain.Sale) (int64, error) {
	st.nextSaleID++
	sale.ID = st.nextSaleID
	st.sales[sale.ID] = sale
	return sale.ID, nil
}

func (st *state) UpdateSale(_ context.Context, sale domain.Sale) error {
	if _, ok := st.sales[sale.ID]; !ok {
		return store.ErrNotFound
	}
	st.sales[sale.ID] = sale
	return nil
}

func (st *state) DeleteSale(_ context.Context, id int64) error {
	if _, ok := st.sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.sales, id)
	return nil
}

func (st *state) DeleteSales(_ context.Context, from time.Time, to time.Time) (int64, error) {
	q := domain.SaleQuery{From: from, To: to}
	var removed int64
	for id, sale := range st.sales {
		if matchSale(sale, q) {
			delete(st.sales, id)
			removed++
		}
	}
	return removed, nil
}

func (st *state) InsertItem(_ context.Context, item domain.InventoryItem) (int64, error) {
	st.nextItemID++
	item.ID = st.nextItemID
	st.items[item.ID] = item
	return item.ID, nil
}

func (st *state) UpdateItem(_ context.Context, item domain.InventoryItem) error {
	if _, ok := st.items[item.ID]; !ok {
		return store.ErrNotFound
	}
	st.items[item.ID] = item
	return nil
}

func (st *state) DeleteItem(_ context.Context, id int64) error {
	if _, ok := st.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.items, id)
	return nil
}

func (st *state) InsertStockMovement(_ context.Context, movement domain.StockMovement) error {
	st.movements = append(st.movements, movement)
	return nil
}

func (st *state) InsertTemplate(_ context.Context, tpl domain.SaleTemplate) (int64, error) {
	st.nextTemplateID++
	tpl.ID = st.nextTemplateID
	st.templates[tpl.ID] = copyTemplate(tpl)
	return tpl.ID, nil
}

func (st *state) UpdateTemplate(_ context.Context, tpl domain.SaleTemplate) error {
	if _, ok := st.templates[tpl.ID]; !ok {
		return store.ErrNotFound
	}
	st.templates[tpl.ID] = copyTemplate(tpl)
	return nil
}

func (st *state) DeleteTemplate(_ context.Context, id int64) error {
	if _, ok := st.templates[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.templates, id)
	return nil
}

func (st *state) UnlinkTemplates(_ context.Context, itemID int64) (int64, error) {
	var unlinked int64
	for id, tpl := range st.templates {
		if tpl.InventoryItemID != nil && *tpl.InventoryItemID == itemID {
			tpl.InventoryItemID = nil
			st.templates[id] = tpl
			unlinked++
		}
	}
	return unlinked, nil
}

func (st *state) InsertClosing(_ context.Context, closing domain.CashClosing) error {
	if _, ok := st.closings[closing.Date]; ok {
		return store.ErrAlreadyClosed
	}
	st.closings[closing.Date] = closing
	return nil
}
