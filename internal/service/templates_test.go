package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

func createLinkedTemplate(t *testing.T, env *testEnv, itemID int64, consumption int) domain.SaleTemplate {
	t.Helper()
	tpl, err := env.svc.Templates.Create(context.Background(), domain.TemplateRequest{
		Name:            "Photo",
		Price:           dec("12.50"),
		Size:            "10x15",
		Icon:            domain.IconPhoto,
		Tag:             "prints",
		InventoryItemID: &itemID,
		ConsumptionQty:  consumption,
	})
	if err != nil {
		t.Fatalf("create template failed: %v", err)
	}
	return tpl
}

func TestSellTemplateRecordsSaleAndConsumesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := mustAddItem(t, env, "Photo paper", 100, "500.00")
	tpl := createLinkedTemplate(t, env, item.ID, 2)

	sale, err := env.svc.Templates.SellTemplate(ctx, tpl.ID, 3, domain.PaymentCard)
	if err != nil {
		t.Fatalf("sell template failed: %v", err)
	}
	if sale.Description != "Photo (10x15) x3" {
		t.Fatalf("unexpected description %q", sale.Description)
	}
	assertDecimal(t, "gross", sale.Gross, "37.50")
	assertDecimal(t, "fee", sale.Fee, "2.00")
	assertDecimal(t, "net", sale.Net, "35.50")

	after, err := env.svc.Inventory.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if after.Quantity != 94 {
		t.Fatalf("expected 94 units left, got %d", after.Quantity)
	}
	assertDecimal(t, "total cost", after.TotalCost, "470.00")

	movements, _ := env.svc.Inventory.Movements(ctx, item.ID, 1)
	if len(movements) != 1 || movements[0].Kind != domain.MovementConsume || movements[0].Quantity != 6 {
		t.Fatalf("expected a consume movement of 6, got %+v", movements)
	}
}

type ledgerSnapshot struct {
	item  domain.InventoryItem
	sales []domain.Sale
}

func snapshot(t *testing.T, env *testEnv, itemID int64) ledgerSnapshot {
	t.Helper()
	item, err := env.svc.Inventory.Get(context.Background(), itemID)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	sales, err := env.svc.Sales.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	return ledgerSnapshot{item: item, sales: sales}
}

func assertUnchanged(t *testing.T, before ledgerSnapshot, after ledgerSnapshot) {
	t.Helper()
	if before.item.Quantity != after.item.Quantity || !before.item.TotalCost.Equal(after.item.TotalCost) {
		t.Fatalf("inventory changed: before %+v after %+v", before.item, after.item)
	}
	if len(before.sales) != len(after.sales) {
		t.Fatalf("sales changed: before %d after %d", len(before.sales), len(after.sales))
	}
}

func TestSellTemplateWithInsufficientStockChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := mustAddItem(t, env, "Photo paper", 5, "25.00")
	tpl := createLinkedTemplate(t, env, item.ID, 2)
	before := snapshot(t, env, item.ID)

	_, err := env.svc.Templates.SellTemplate(ctx, tpl.ID, 3, domain.PaymentCash)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	assertUnchanged(t, before, snapshot(t, env, item.ID))
}

func TestSellTemplateRejectsQuantityBeyondAnyStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := mustAddItem(t, env, "Photo paper", 10, "50.00")
	tpl := createLinkedTemplate(t, env, item.ID, 2)
	before := snapshot(t, env, item.ID)

	_, err := env.svc.Templates.SellTemplate(ctx, tpl.ID, math.MaxInt/2+1, domain.PaymentCash)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock for a quantity whose consumption overflows, got %v", err)
	}
	assertUnchanged(t, before, snapshot(t, env, item.ID))
}

func TestSellTemplateRollsBackSaleWhenConsumptionFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := mustAddItem(t, env, "Photo paper", 50, "100.00")
	tpl := createLinkedTemplate(t, env, item.ID, 1)
	before := snapshot(t, env, item.ID)

	env.repo.failUpdateItem = true
	_, err := env.svc.Templates.SellTemplate(ctx, tpl.ID, 1, domain.PaymentPix)
	env.repo.failUpdateItem = false
	if !errors.Is(err, store.ErrStoreFailure) {
		t.Fatalf("expected store failure, got %v", err)
	}
	assertUnchanged(t, before, snapshot(t, env, item.ID))
}

func TestSellTemplateWithDanglingLinkSellsWithoutStock(t *testing.T) {
	env := newTestEnvWith(t, Options{UnlinkOnRemove: false})
	ctx := context.Background()
	item := mustAddItem(t, env, "Frame", 0, "0")
	tpl := createLinkedTemplate(t, env, item.ID, 1)

	if _, err := env.svc.Inventory.RemoveItem(ctx, item.ID); err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	sale, err := env.svc.Templates.SellTemplate(ctx, tpl.ID, 2, domain.PaymentCash)
	if err != nil {
		t.Fatalf("expected sale without stock linkage, got %v", err)
	}
	assertDecimal(t, "gross", sale.Gross, "25.00")

	withStock, err := env.svc.Templates.ListWithStock(ctx)
	if err != nil {
		t.Fatalf("list with stock failed: %v", err)
	}
	if len(withStock) != 1 || withStock[0].Linked {
		t.Fatalf("expected dangling link to read as unlinked, got %+v", withStock)
	}
}

func TestSellTemplateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := mustAddItem(t, env, "Photo paper", 10, "10.00")
	tpl := createLinkedTemplate(t, env, item.ID, 1)

	if _, err := env.svc.Templates.SellTemplate(ctx, tpl.ID, 0, domain.PaymentCash); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if _, err := env.svc.Templates.SellTemplate(ctx, tpl.ID, 1, "BOLETO"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for unknown method, got %v", err)
	}
	if _, err := env.svc.Templates.SellTemplate(ctx, 999, 1, domain.PaymentCash); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for missing template, got %v", err)
	}
	if err := env.svc.Templates.Deactivate(ctx, tpl.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := env.svc.Templates.SellTemplate(ctx, tpl.ID, 1, domain.PaymentCash); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for inactive template, got %v", err)
	}
}

func TestTemplateCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := mustAddItem(t, env, "Frame stock", 8, "80.00")

	frame, err := env.svc.Templates.Create(ctx, domain.TemplateRequest{
		Name:            " Frame ",
		Price:           dec("40"),
		Tag:             "frames",
		InventoryItemID: &item.ID,
	})
	if err != nil {
		t.Fatalf("create frame failed: %v", err)
	}
	if frame.Name != "Frame" || frame.Icon != domain.IconPhoto || frame.ConsumptionQty != 1 || !frame.Active {
		t.Fatalf("unexpected defaults: %+v", frame)
	}
	doc, err := env.svc.Templates.Create(ctx, domain.TemplateRequest{Name: "Document copy", Price: dec("2"), Icon: domain.IconDocument})
	if err != nil {
		t.Fatalf("create document failed: %v", err)
	}
	if doc.Icon.Label() != "Documento" || doc.Icon.Color() != "#f59e0b" {
		t.Fatalf("unexpected icon display %q %q", doc.Icon.Label(), doc.Icon.Color())
	}

	missing := int64(404)
	if _, err := env.svc.Templates.Create(ctx, domain.TemplateRequest{Name: "Ghost", Price: dec("1"), InventoryItemID: &missing}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for missing linked item, got %v", err)
	}
	if _, err := env.svc.Templates.Create(ctx, domain.TemplateRequest{Name: "Bad", Price: dec("1"), Icon: "STAR"}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for unknown icon, got %v", err)
	}
	if _, err := env.svc.Templates.Create(ctx, domain.TemplateRequest{Name: "Bad", Price: dec("1"), ConsumptionQty: -1}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative consumption, got %v", err)
	}

	found, err := env.svc.Templates.FindByName(ctx, "  frame")
	if err != nil || found.ID != frame.ID {
		t.Fatalf("expected case-insensitive match, got %+v err=%v", found, err)
	}
	byTag, err := env.svc.Templates.ListByTag(ctx, "frames")
	if err != nil || len(byTag) != 1 || byTag[0].ID != frame.ID {
		t.Fatalf("expected frame by tag, got %+v err=%v", byTag, err)
	}

	withStock, err := env.svc.Templates.ListWithStock(ctx)
	if err != nil {
		t.Fatalf("list with stock failed: %v", err)
	}
	if len(withStock) != 2 || withStock[0].Template.ID != doc.ID || !withStock[1].Linked || withStock[1].Available != 8 || withStock[1].ItemName != "Frame stock" {
		t.Fatalf("unexpected stock listing: %+v", withStock)
	}

	updated, err := env.svc.Templates.Update(ctx, frame.ID, domain.TemplateRequest{Name: "Frame 20x30", Price: dec("45"), Size: "20x30"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.InventoryItemID != nil || !updated.Active {
		t.Fatalf("expected link cleared and active kept, got %+v", updated)
	}

	if err := env.svc.Templates.Deactivate(ctx, doc.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	active, _ := env.svc.Templates.ListActive(ctx)
	all, _ := env.svc.Templates.ListAll(ctx)
	if len(active) != 1 || len(all) != 2 {
		t.Fatalf("expected 1 active of 2, got %d of %d", len(active), len(all))
	}

	if err := env.svc.Templates.Remove(ctx, doc.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	count, err := env.svc.Templates.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 template left, got %d err=%v", count, err)
	}
	if _, err := env.svc.Templates.FindByName(ctx, "Document copy"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after removal, got %v", err)
	}
}
