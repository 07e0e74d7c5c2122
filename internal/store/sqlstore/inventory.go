package sqlstore

import (
	"context"

	"tillledger/internal/domain"
)

const itemColumns = `id, name, COALESCE(color, '') AS color, COALESCE(size, '') AS size, quantity, total_cost`

func (c *conn) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := c.get(ctx, "get item", &item, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`+c.lock, id); err != nil {
		return nil, err
	}
	item.TotalCost = round2(item.TotalCost)
	return &item, nil
}

func (c *conn) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return c.listItems(ctx, "list items", `
		SELECT `+itemColumns+`
		FROM inventory_items
		ORDER BY name, COALESCE(color, ''), COALESCE(size, ''), id`)
}

func (c *conn) ListLowStock(ctx context.Context, threshold int) ([]domain.InventoryItem, error) {
	return c.listItems(ctx, "list low stock", `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE quantity <= ?
		ORDER BY quantity, name, id`, threshold)
}

func (c *conn) listItems(ctx context.Context, op string, query string, args ...any) ([]domain.InventoryItem, error) {
	items := make([]domain.InventoryItem, 0, 64)
	if err := c.selectAll(ctx, op, &items, query, args...); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].TotalCost = round2(items[i].TotalCost)
	}
	return items, nil
}

func (c *conn) InventoryTotals(ctx context.Context, threshold int) (domain.InventoryTotals, error) {
	var totals domain.InventoryTotals
	err := c.get(ctx, "inventory totals", &totals, `
		SELECT COUNT(*) AS item_count,
			COALESCE(SUM(quantity), 0) AS quantity,
			COALESCE(SUM(total_cost), 0) AS total_value,
			COALESCE(SUM(CASE WHEN quantity <= ? THEN 1 ELSE 0 END), 0) AS critical_count
		FROM inventory_items`, threshold)
	if err != nil {
		return domain.InventoryTotals{}, err
	}
	totals.Value = round2(totals.Value)
	return totals, nil
}

func (c *conn) ListStockMovements(ctx context.Context, itemID int64, limit int) ([]domain.StockMovement, error) {
	query := `
		SELECT id, item_id, kind, quantity, qty_before, qty_after, cost_before, cost_after,
			COALESCE(reason, '') AS reason, moved_at
		FROM stock_movements`
	args := make([]any, 0, 2)
	if itemID != 0 {
		query += ` WHERE item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY moved_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	movements := make([]domain.StockMovement, 0, 32)
	if err := c.selectAll(ctx, "list stock movements", &movements, query, args...); err != nil {
		return nil, err
	}
	for i := range movements {
		movements[i].CostBefore = round2(movements[i].CostBefore)
		movements[i].CostAfter = round2(movements[i].CostAfter)
		movements[i].At = movements[i].At.UTC()
	}
	return movements, nil
}

func (c *conn) InsertItem(ctx context.Context, item domain.InventoryItem) (int64, error) {
	return c.insertReturningID(ctx, "insert item", `
		INSERT INTO inventory_items (name, color, size, quantity, total_cost)
		VALUES (?, ?, ?, ?, ?)`,
		item.Name, nullIfEmpty(item.Color), nullIfEmpty(item.Size), item.Quantity, item.TotalCost)
}

func (c *conn) UpdateItem(ctx context.Context, item domain.InventoryItem) error {
	return c.execOne(ctx, "update item", `
		UPDATE inventory_items
		SET name = ?, color = ?, size = ?, quantity = ?, total_cost = ?
		WHERE id = ?`,
		item.Name, nullIfEmpty(item.Color), nullIfEmpty(item.Size), item.Quantity, item.TotalCost, item.ID)
}

func (c *conn) DeleteItem(ctx context.Context, id int64) error {
	return c.execOne(ctx, "delete item", `DELETE FROM inventory_items WHERE id = ?`, id)
}

func (c *conn) InsertStockMovement(ctx context.Context, m domain.StockMovement) error {
	_, err := c.exec(ctx, "insert stock movement", `
		INSERT INTO stock_movements (id, item_id, kind, quantity, qty_before, qty_after, cost_before, cost_after, reason, moved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ItemID, m.Kind, m.Quantity, m.QtyBefore, m.QtyAfter, m.CostBefore, m.CostAfter, nullIfEmpty(m.Reason), utc(m.At))
	return err
}
