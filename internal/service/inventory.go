package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

// Inventory is the stock ledger. Quantity and total cost only change
// together, so the derived unit cost survives consumption.
type Inventory struct {
	*core
	threshold      int
	unlinkOnRemove bool
}

// Removal reports what RemoveItem destroyed.
type Removal struct {
	Item              domain.InventoryItem
	HadStock          bool
	UnlinkedTemplates int64
}

func (inv *Inventory) Threshold() int {
	if inv.threshold <= 0 {
		return defaultLowStockThreshold
	}
	return inv.threshold
}

func (inv *Inventory) AddItem(ctx context.Context, req domain.ItemCreateRequest) (domain.InventoryItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Color = strings.TrimSpace(req.Color)
	req.Size = strings.TrimSpace(req.Size)
	if err := inv.check(req); err != nil {
		return domain.InventoryItem{}, err
	}

	item := domain.InventoryItem{
		Name:      req.Name,
		Color:     req.Color,
		Size:      req.Size,
		Quantity:  req.Quantity,
		TotalCost: req.TotalCost.Round(2),
	}
	err := inv.repo.RunInTx(ctx, func(tx store.Tx) error {
		id, err := tx.InsertItem(ctx, item)
		if err != nil {
			return err
		}
		item.ID = id
		return nil
	})
	if err != nil {
		return domain.InventoryItem{}, inv.finish("inventory", "add item", err)
	}
	return item, nil
}

// UpdateCatalog changes descriptive fields only.
func (inv *Inventory) UpdateCatalog(ctx context.Context, id int64, req domain.ItemCatalogRequest) (domain.InventoryItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Color = strings.TrimSpace(req.Color)
	req.Size = strings.TrimSpace(req.Size)
	if err := inv.check(req); err != nil {
		return domain.InventoryItem{}, err
	}

	var updated domain.InventoryItem
	err := inv.repo.RunInTx(ctx, func(tx store.Tx) error {
		item, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		updated = *item
		updated.Name = req.Name
		updated.Color = req.Color
		updated.Size = req.Size
		return tx.UpdateItem(ctx, updated)
	})
	if err != nil {
		return domain.InventoryItem{}, inv.finish("inventory", "update catalog", err)
	}
	return updated, nil
}

// BatchIntake adds a received lot, blending its cost into the basis.
func (inv *Inventory) BatchIntake(ctx context.Context, id int64, req domain.StockIntakeRequest) (domain.InventoryItem, error) {
	if err := inv.check(req); err != nil {
		return domain.InventoryItem{}, err
	}

	var after domain.InventoryItem
	err := inv.repo.RunInTx(ctx, func(tx store.Tx) error {
		before, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		if req.Quantity > math.MaxInt-before.Quantity {
			return store.NewValidationError("intake would overflow the item quantity")
		}
		after = *before
		after.Quantity += req.Quantity
		after.TotalCost = before.TotalCost.Add(req.LotCost).Round(2)
		if err := tx.UpdateItem(ctx, after); err != nil {
			return err
		}
		return inv.recordMovement(ctx, tx, domain.MovementIntake, *before, after, req.Quantity, "")
	})
	if err != nil {
		return domain.InventoryItem{}, inv.finish("inventory", "batch intake", err)
	}
	return after, nil
}

// ConsumeStock takes qty units out of stock. reason is optional and kept on
// the movement.
func (inv *Inventory) ConsumeStock(ctx context.Context, id int64, qty int, reason string) (domain.InventoryItem, error) {
	if qty <= 0 {
		return domain.InventoryItem{}, store.NewValidationError("quantity must be positive")
	}

	var after domain.InventoryItem
	err := inv.repo.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		after, err = inv.consumeStock(ctx, tx, id, qty, strings.TrimSpace(reason))
		return err
	})
	if err != nil {
		return domain.InventoryItem{}, inv.finish("inventory", "consume stock", err)
	}
	return after, nil
}

// ManualAdjustment overwrites quantity and cost after a physical count.
func (inv *Inventory) ManualAdjustment(ctx context.Context, id int64, req domain.StockAdjustmentRequest) (domain.InventoryItem, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := inv.check(req); err != nil {
		return domain.InventoryItem{}, err
	}

	var before, after domain.InventoryItem
	err := inv.repo.RunInTx(ctx, func(tx store.Tx) error {
		item, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		before = *item
		after = before
		after.Quantity = req.Quantity
		after.TotalCost = req.TotalCost.Round(2)
		if err := tx.UpdateItem(ctx, after); err != nil {
			return err
		}
		return inv.recordMovement(ctx, tx, domain.MovementAdjust, before, after, after.Quantity-before.Quantity, req.Reason)
	})
	if err != nil {
		return domain.InventoryItem{}, inv.finish("inventory", "manual adjustment", err)
	}

	inv.log.WithFields(logrus.Fields{
		"module":      "inventory",
		"item":        id,
		"qty_before":  before.Quantity,
		"qty_after":   after.Quantity,
		"cost_before": before.TotalCost.StringFixed(2),
		"cost_after":  after.TotalCost.StringFixed(2),
		"reason":      req.Reason,
	}).Warn("manual stock adjustment")
	return after, nil
}

// RemoveItem deletes the item. Removing positive stock succeeds but is
// reported through Removal.HadStock and a warning.
func (inv *Inventory) RemoveItem(ctx context.Context, id int64) (Removal, error) {
	var removal Removal
	err := inv.repo.RunInTx(ctx, func(tx store.Tx) error {
		item, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		removal = Removal{Item: *item, HadStock: item.Quantity > 0}
		if err := tx.DeleteItem(ctx, id); err != nil {
			return err
		}
		if inv.unlinkOnRemove {
			if removal.UnlinkedTemplates, err = tx.UnlinkTemplates(ctx, id); err != nil {
				return err
			}
		}
		emptied := domain.InventoryItem{ID: item.ID, TotalCost: decimal.Zero}
		return inv.recordMovement(ctx, tx, domain.MovementRemove, *item, emptied, item.Quantity, "item removed")
	})
	if err != nil {
		return Removal{}, inv.finish("inventory", "remove item", err)
	}

	if removal.HadStock {
		inv.log.WithFields(logrus.Fields{
			"module":   "inventory",
			"item":     id,
			"name":     removal.Item.Name,
			"quantity": removal.Item.Quantity,
			"cost":     removal.Item.TotalCost.StringFixed(2),
		}).Warn("removed item that still had stock")
	}
	return removal, nil
}

func (inv *Inventory) Get(ctx context.Context, id int64) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := inv.repo.View(ctx, func(r store.Reader) error {
		found, err := r.GetItem(ctx, id)
		if err != nil {
			return err
		}
		item = *found
		return nil
	})
	return item, inv.finish("inventory", "get item", err)
}

func (inv *Inventory) List(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	err := inv.repo.View(ctx, func(r store.Reader) error {
		var err error
		items, err = r.ListItems(ctx)
		return err
	})
	return items, inv.finish("inventory", "list items", err)
}

// LowStock lists items at or below the threshold, emptiest first.
func (inv *Inventory) LowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	err := inv.repo.View(ctx, func(r store.Reader) error {
		var err error
		items, err = r.ListLowStock(ctx, inv.Threshold())
		return err
	})
	return items, inv.finish("inventory", "list low stock", err)
}

func (inv *Inventory) Report(ctx context.Context) (domain.InventoryTotals, error) {
	var totals domain.InventoryTotals
	err := inv.repo.View(ctx, func(r store.Reader) error {
		var err error
		totals, err = r.InventoryTotals(ctx, inv.Threshold())
		return err
	})
	return totals, inv.finish("inventory", "inventory report", err)
}

func (inv *Inventory) Count(ctx context.Context) (int64, error) {
	totals, err := inv.Report(ctx)
	return totals.Items, err
}

func (inv *Inventory) TotalValue(ctx context.Context) (decimal.Decimal, error) {
	totals, err := inv.Report(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return totals.Value, nil
}

// Movements lists the stock ledger of one item, newest first. itemID 0 lists all items.
func (inv *Inventory) Movements(ctx context.Context, itemID int64, limit int) ([]domain.StockMovement, error) {
	var movements []domain.StockMovement
	err := inv.repo.View(ctx, func(r store.Reader) error {
		var err error
		movements, err = r.ListStockMovements(ctx, itemID, limit)
		return err
	})
	return movements, inv.finish("inventory", "list stock movements", err)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
