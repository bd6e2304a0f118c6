package service

import (
	"context"
	"testing"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
)

func TestTableSevenDinnerScenario(t *testing.T) {
	env := setupComandaTest(t)
	ctx := context.Background()

	table := createTestTable(t, env, "Mesa 7")
	if err := env.db.Model(&models.Table{}).Where("id = ?", table.ID).Update("menu_form_id", env.form.ID).Error; err != nil {
		t.Fatalf("bind menu failed: %v", err)
	}
	issued, err := env.tokens.Issue(env.tenant.ID, constants.TokenKindTable, table.ID, 0, "manager")
	if err != nil {
		t.Fatalf("issue table token failed: %v", err)
	}
	qr := "https://menu.example.com/bistro/tables/7?t=" + issued.Raw

	menu, err := env.orders.ResolveTableMenu(ctx, env.tenant.ID, table.ID, qr)
	if err != nil {
		t.Fatalf("resolve menu failed: %v", err)
	}
	if menu.MenuSlug != "dinner" {
		t.Fatalf("expected dinner menu, got %q", menu.MenuSlug)
	}

	submitted, err := env.orders.Submit(ctx, SubmitOrderInput{
		TenantSlug: "bistro",
		FormSlug:   menu.MenuSlug,
		Responder:  ResponderInput{Name: "Diner", Phone: "555-0707"},
		Items: []LineItemInput{
			{ProductRef: "moqueca", Quantity: 1, UnitValue: mustMoney(t, "29.50")},
			{ProductRef: "juice", Quantity: 2, UnitValue: mustMoney(t, "4.00")},
		},
		TableToken: qr,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	order := submitted.Order
	if order.Origin != constants.OrderOriginTable || order.TotalAmount.String() != "37.50" {
		t.Fatalf("unexpected order origin=%s total=%s", order.Origin, order.TotalAmount.String())
	}
	if submitted.Occupancy != constants.OccupancyOccupied {
		t.Fatalf("expected table to be occupied, got %s", submitted.Occupancy)
	}
	occupied, err := env.tables.Get(env.tenant.ID, table.ID)
	if err != nil {
		t.Fatalf("get table failed: %v", err)
	}
	if occupied.Status != constants.TableStatusOccupied || occupied.OccupantContactID == nil {
		t.Fatalf("table 7 should be occupied by the diner, got %+v", occupied)
	}

	for _, status := range []string{constants.OrderStatusConfirmed, constants.OrderStatusPreparing, constants.OrderStatusReady} {
		if _, err := env.orders.Advance(ctx, env.tenant.ID, order.ID, status, "kitchen"); err != nil {
			t.Fatalf("advance to %s failed: %v", status, err)
		}
	}

	bill, err := env.bills.CurrentSessionBill(env.tenant.ID, table.ID, nil)
	if err != nil {
		t.Fatalf("compute bill failed: %v", err)
	}
	if bill.Total.String() != "37.50" {
		t.Fatalf("expected bill 37.50, got %s", bill.Total.String())
	}

	released, err := env.tables.Release(ctx, env.tenant.ID, table.ID, "cashier")
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if released.Status != constants.TableStatusFree || released.OccupantContactID != nil {
		t.Fatalf("table 7 should be free and cleared, got %+v", released)
	}
	final, err := env.orders.Get(env.tenant.ID, order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if final.Status != constants.OrderStatusReady {
		t.Fatalf("order should remain ready in history, got %s", final.Status)
	}
}
