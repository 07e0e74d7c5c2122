package sqlstore

import (
	"context"
	"strings"

	"tillledger/internal/domain"
)

const templateColumns = `id, name, price, COALESCE(size, '') AS size, icon, COALESCE(tag, '') AS tag,
	inventory_item_id, consumption_qty, active`

func (c *conn) GetTemplate(ctx context.Context, id int64) (*domain.SaleTemplate, error) {
	var tpl domain.SaleTemplate
	if err := c.get(ctx, "get template", &tpl, `SELECT `+templateColumns+` FROM sale_templates WHERE id = ?`, id); err != nil {
		return nil, err
	}
	tpl.Price = round2(tpl.Price)
	return &tpl, nil
}

func (c *conn) ListTemplates(ctx context.Context, q domain.TemplateQuery) ([]domain.SaleTemplate, error) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 2)
	if q.ActiveOnly {
		clauses = append(clauses, "active = ?")
		args = append(args, true)
	}
	if q.Tag != "" {
		clauses = append(clauses, "tag = ?")
		args = append(args, q.Tag)
	}
	if q.Name != "" {
		clauses = append(clauses, "LOWER(name) = LOWER(?)")
		args = append(args, q.Name)
	}

	query := `SELECT ` + templateColumns + ` FROM sale_templates`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY LOWER(name), id`

	templates := make([]domain.SaleTemplate, 0, 32)
	if err := c.selectAll(ctx, "list templates", &templates, query, args...); err != nil {
		return nil, err
	}
	for i := range templates {
		templates[i].Price = round2(templates[i].Price)
	}
	return templates, nil
}

func (c *conn) CountTemplates(ctx context.Context) (int64, error) {
	var count int64
	if err := c.get(ctx, "count templates", &count, `SELECT COUNT(*) FROM sale_templates`); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *conn) InsertTemplate(ctx context.Context, tpl domain.SaleTemplate) (int64, error) {
	return c.insertReturningID(ctx, "insert template", `
		INSERT INTO sale_templates (name, price, size, icon, tag, inventory_item_id, consumption_qty, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.Name, tpl.Price, nullIfEmpty(tpl.Size), tpl.Icon, nullIfEmpty(tpl.Tag), tpl.InventoryItemID, tpl.ConsumptionQty, tpl.Active)
}

func (c *conn) UpdateTemplate(ctx context.Context, tpl domain.SaleTemplate) error {
	return c.execOne(ctx, "update template", `
		UPDATE sale_templates
		SET name = ?, price = ?, size = ?, icon = ?, tag = ?, inventory_item_id = ?, consumption_qty = ?, active = ?
		WHERE id = ?`,
		tpl.Name, tpl.Price, nullIfEmpty(tpl.Size), tpl.Icon, nullIfEmpty(tpl.Tag), tpl.InventoryItemID, tpl.ConsumptionQty, tpl.Active, tpl.ID)
}

func (c *conn) DeleteTemplate(ctx context.Context, id int64) error {
	return c.execOne(ctx, "delete template", `DELETE FROM sale_templates WHERE id = ?`, id)
}

func (c *conn) UnlinkTemplates(ctx context.Context, itemID int64) (int64, error) {
	return c.exec(ctx, "unlink templates", `UPDATE sale_templates SET inventory_item_id = NULL WHERE inventory_item_id = ?`, itemID)
}
