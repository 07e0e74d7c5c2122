package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

// Templates is the quick-sale catalog. SellTemplate records the sale and
// consumes the linked stock in one transaction.
type Templates struct {
	*core
}

func normalizeTemplateRequest(req domain.TemplateRequest) domain.TemplateRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Size = strings.TrimSpace(req.Size)
	req.Tag = strings.TrimSpace(req.Tag)
	if req.Icon == "" {
		req.Icon = domain.IconPhoto
	}
	if req.ConsumptionQty == 0 {
		req.ConsumptionQty = 1
	}
	return req
}

func (t *Templates) Create(ctx context.Context, req domain.TemplateRequest) (domain.SaleTemplate, error) {
	req = normalizeTemplateRequest(req)
	if err := t.check(req); err != nil {
		return domain.SaleTemplate{}, err
	}

	tpl := domain.SaleTemplate{
		Name:            req.Name,
		Price:           req.Price.Round(2),
		Size:            req.Size,
		Icon:            req.Icon,
		Tag:             req.Tag,
		InventoryItemID: req.InventoryItemID,
		ConsumptionQty:  req.ConsumptionQty,
		Active:          true,
	}
	err := t.repo.RunInTx(ctx, func(tx store.Tx) error {
		if err := t.checkLink(ctx, tx, req.InventoryItemID); err != nil {
			return err
		}
		id, err := tx.InsertTemplate(ctx, tpl)
		if err != nil {
			return err
		}
		tpl.ID = id
		return nil
	})
	if err != nil {
		return domain.SaleTemplate{}, t.finish("templates", "create template", err)
	}
	return tpl, nil
}

// Update replaces the editable fields; the active flag is kept.
func (t *Templates) Update(ctx context.Context, id int64, req domain.TemplateRequest) (domain.SaleTemplate, error) {
	req = normalizeTemplateRequest(req)
	if err := t.check(req); err != nil {
		return domain.SaleTemplate{}, err
	}

	var updated domain.SaleTemplate
	err := t.repo.RunInTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetTemplate(ctx, id)
		if err != nil {
			return err
		}
		if err := t.checkLink(ctx, tx, req.InventoryItemID); err != nil {
			return err
		}
		updated = *existing
		updated.Name = req.Name
		updated.Price = req.Price.Round(2)
		updated.Size = req.Size
		updated.Icon = req.Icon
		updated.Tag = req.Tag
		updated.InventoryItemID = req.InventoryItemID
		updated.ConsumptionQty = req.ConsumptionQty
		return tx.UpdateTemplate(ctx, updated)
	})
	if err != nil {
		return domain.SaleTemplate{}, t.finish("templates", "update template", err)
	}
	return updated, nil
}

// checkLink rejects links to items that do not exist at edit time.
func (t *Templates) checkLink(ctx context.Context, tx store.Tx, itemID *int64) error {
	if itemID == nil {
		return nil
	}
	if _, err := tx.GetItem(ctx, *itemID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("linked inventory item %d: %w", *itemID, store.ErrNotFound)
		}
		return err
	}
	return nil
}

// Deactivate hides the template from the active catalog.
func (t *Templates) Deactivate(ctx context.Context, id int64) error {
	err := t.repo.RunInTx(ctx, func(tx store.Tx) error {
		tpl, err := tx.GetTemplate(ctx, id)
		if err != nil {
			return err
		}
		tpl.Active = false
		return tx.UpdateTemplate(ctx, *tpl)
	})
	return t.finish("templates", "deactivate template", err)
}

func (t *Templates) Remove(ctx context.Context, id int64) error {
	err := t.repo.RunInTx(ctx, func(tx store.Tx) error {
		return tx.DeleteTemplate(ctx, id)
	})
	return t.finish("templates", "remove template", err)
}

func (t *Templates) Get(ctx context.Context, id int64) (domain.SaleTemplate, error) {
	var tpl domain.SaleTemplate
	err := t.repo.View(ctx, func(r store.Reader) error {
		found, err := r.GetTemplate(ctx, id)
		if err != nil {
			return err
		}
		tpl = *found
		return nil
	})
	return tpl, t.finish("templates", "get template", err)
}

func (t *Templates) list(ctx context.Context, q domain.TemplateQuery) ([]domain.SaleTemplate, error) {
	var templates []domain.SaleTemplate
	err := t.repo.View(ctx, func(r store.Reader) error {
		var err error
		templates, err = r.ListTemplates(ctx, q)
		return err
	})
	return templates, t.finish("templates", "list templates", err)
}

func (t *Templates) ListActive(ctx context.Context) ([]domain.SaleTemplate, error) {
	return t.list(ctx, domain.TemplateQuery{ActiveOnly: true})
}

func (t *Templates) ListAll(ctx context.Context) ([]domain.SaleTemplate, error) {
	return t.list(ctx, domain.TemplateQuery{})
}

func (t *Templates) ListByTag(ctx context.Context, tag string) ([]domain.SaleTemplate, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, store.NewValidationError("tag is required")
	}
	return t.list(ctx, domain.TemplateQuery{ActiveOnly: true, Tag: tag})
}

// FindByName matches the trimmed name case-insensitively.
func (t *Templates) FindByName(ctx context.Context, name string) (domain.SaleTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SaleTemplate{}, store.NewValidationError("name is required")
	}
	matches, err := t.list(ctx, domain.TemplateQuery{Name: name})
	if err != nil {
		return domain.SaleTemplate{}, err
	}
	if len(matches) == 0 {
		return domain.SaleTemplate{}, store.ErrNotFound
	}
	return matches[0], nil
}

func (t *Templates) Count(ctx context.Context) (int64, error) {
	var count int64
	err := t.repo.View(ctx, func(r store.Reader) error {
		var err error
		count, err = r.CountTemplates(ctx)
		return err
	})
	return count, t.finish("templates", "count templates", err)
}

// ListWithStock pairs active templates with their linked stock. A link to
// a missing item reads as unlinked.
func (t *Templates) ListWithStock(ctx context.Context) ([]domain.TemplateStock, error) {
	var out []domain.TemplateStock
	err := t.repo.View(ctx, func(r store.Reader) error {
		templates, err := r.ListTemplates(ctx, domain.TemplateQuery{ActiveOnly: true})
		if err != nil {
			return err
		}
		out = make([]domain.TemplateStock, 0, len(templates))
		for _, tpl := range templates {
			entry := domain.TemplateStock{Template: tpl}
			if tpl.InventoryItemID != nil {
				item, err := r.GetItem(ctx, *tpl.InventoryItemID)
				switch {
				case err == nil:
					entry.Linked = true
					entry.ItemName = item.Name
					entry.Available = item.Quantity
				case !isNotFound(err):
					return err
				}
			}
			out = append(out, entry)
		}
		return nil
	})
	return out, t.finish("templates", "list templates with stock", err)
}

// SellTemplate records qty units of the template as one sale and consumes
// consumptionQty*qty units of the linked item. Nothing is written when the
// stock does not cover the sale.
func (t *Templates) SellTemplate(ctx context.Context, templateID int64, qty int, method domain.PaymentMethod) (domain.Sale, error) {
	if qty <= 0 {
		return domain.Sale{}, store.NewValidationError("quantity must be positive")
	}
	if !method.Valid() {
		return domain.Sale{}, store.NewValidationError(fmt.Sprintf("unknown payment method %q", method))
	}

	var sale domain.Sale
	err := t.repo.RunInTx(ctx, func(tx store.Tx) error {
		tpl, err := tx.GetTemplate(ctx, templateID)
		if err != nil {
			return err
		}
		if !tpl.Active {
			return store.NewValidationError(fmt.Sprintf("template %d is inactive", tpl.ID))
		}

		var linked *domain.InventoryItem
		var required int
		if tpl.InventoryItemID != nil {
			linked, err = tx.GetItem(ctx, *tpl.InventoryItemID)
			switch {
			case isNotFound(err):
				t.log.WithFields(logrus.Fields{
					"module":   "templates",
					"template": tpl.ID,
					"item":     *tpl.InventoryItemID,
				}).Warn("template links to a missing item, selling without stock")
				linked = nil
			case err != nil:
				return err
			case qty > math.MaxInt/max(tpl.ConsumptionQty, 1):
				return fmt.Errorf("%w: %s x%d exceeds any stock, %d available", store.ErrInsufficientStock, tpl.Name, qty, linked.Quantity)
			default:
				required = tpl.ConsumptionQty * qty
				if required > linked.Quantity {
					return fmt.Errorf("%w: %s needs %d, %d available", store.ErrInsufficientStock, tpl.Name, required, linked.Quantity)
				}
			}
		}

		sale, err = t.insertSale(ctx, tx, domain.SaleRequest{
			Description: describeTemplateSale(*tpl, qty),
			Gross:       tpl.Price.Mul(decimal.NewFromInt(int64(qty))),
			Method:      method,
		})
		if err != nil {
			return err
		}
		if linked == nil {
			return nil
		}
		_, err = t.consumeStock(ctx, tx, linked.ID, required, fmt.Sprintf("sale %d", sale.ID))
		return err
	})
	if err != nil {
		return domain.Sale{}, t.finish("templates", "sell template", err)
	}
	return sale, nil
}

func describeTemplateSale(tpl domain.SaleTemplate, qty int) string {
	if tpl.Size == "" {
		return fmt.Sprintf("%s x%d", tpl.Name, qty)
	}
	return fmt.Sprintf("%s (%s) x%d", tpl.Name, tpl.Size, qty)
}
