package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/realtime"
	"github.com/comanda-next/internal/repository"
)

func TestStartRouteIsAtomic(t *testing.T) {
	env := setupComandaTest(t)
	ctx := context.Background()
	o1 := createTestOrderRow(t, env, constants.OrderOriginDelivery, constants.OrderStatusReady, nil, time.Now())
	o2 := createTestOrderRow(t, env, constants.OrderOriginDelivery, constants.OrderStatusDelivered, nil, time.Now())

	_, err := env.routes.StartRoute(ctx, env.tenant.ID, 11, []uint{o1.ID, o2.ID}, "courier")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.ResourceID != o2.ID {
		t.Fatalf("error should name order %d, got %v", o2.ID, err)
	}
	current, _ := env.orders.Get(env.tenant.ID, o1.ID)
	if current.Status != constants.OrderStatusReady || current.RouteID != nil {
		t.Fatalf("o1 must be untouched, got status=%s route=%v", current.Status, current.RouteID)
	}
	var routes int64
	env.db.Model(&models.DeliveryRoute{}).Count(&routes)
	if routes != 0 {
		t.Fatalf("failed start should not leave a route, found %d", routes)
	}
	if len(env.publisher.names()) != 0 {
		t.Fatalf("failed start should not publish, got %v", env.publisher.names())
	}
}

func TestStartRouteValidation(t *testing.T) {
	env := setupComandaTest(t)
	ctx := context.Background()
	if _, err := env.routes.StartRoute(ctx, env.tenant.ID, 11, nil, "courier"); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty ids should fail validation, got %v", err)
	}
	if _, err := env.routes.StartRoute(ctx, env.tenant.ID, 11, []uint{12345}, "courier"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id should be not found, got %v", err)
	}
	counter := createTestOrderRow(t, env, constants.OrderOriginCounter, constants.OrderStatusPreparing, nil, time.Now())
	if _, err := env.routes.StartRoute(ctx, env.tenant.ID, 11, []uint{counter.ID}, "courier"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("non-delivery order that is not ready should be rejected, got %v", err)
	}
}

func TestRouteLifecycle(t *testing.T) {
	env := setupComandaTest(t)
	ctx := context.Background()
	first, err := env.orders.Submit(ctx, SubmitOrderInput{
		TenantSlug: "bistro",
		FormSlug:   "dinner",
		Responder:  ResponderInput{Name: "Eva", Phone: "555-1111"},
		Items:      []LineItemInput{{ProductRef: "burger", Quantity: 1, UnitValue: mustMoney(t, "9")}},
		Metadata:   map[string]interface{}{"origin": "delivery"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	second := createTestOrderRow(t, env, constants.OrderOriginDelivery, constants.OrderStatusReady, nil, time.Now())

	route, err := env.routes.Scan(ctx, env.tenant.ID, 21, "https://menu.example.com/track?t="+first.DeliveryToken)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if route.Phase != constants.RoutePhaseCollecting || len(route.Stops) != 1 {
		t.Fatalf("scan should collect one stop, got phase=%s stops=%d", route.Phase, len(route.Stops))
	}
	again, err := env.routes.Scan(ctx, env.tenant.ID, 21, first.DeliveryToken)
	if err != nil || again.ID != route.ID || len(again.Stops) != 1 {
		t.Fatalf("scanning twice should be a no-op, got %v / %v", again, err)
	}

	started, err := env.routes.StartRoute(ctx, env.tenant.ID, 21, []uint{first.Order.ID, second.ID}, "courier")
	if err != nil {
		t.Fatalf("start route failed: %v", err)
	}
	if started.ID != route.ID || started.Phase != constants.RoutePhaseStarted || len(started.Stops) != 2 {
		t.Fatalf("collecting route should become started with two stops, got %+v", started)
	}
	if env.publisher.count("route.started") != 1 {
		t.Fatalf("expected route.started event")
	}

	if _, err := env.routes.StartRoute(ctx, env.tenant.ID, 22, []uint{second.ID}, "courier"); !errors.Is(err, ErrConflict) {
		t.Fatalf("another courier should conflict, got %v", err)
	}
	if _, err := env.routes.FinishRoute(ctx, env.tenant.ID, 22, []uint{second.ID}, "courier"); !errors.Is(err, ErrConflict) {
		t.Fatalf("finishing without a route should conflict, got %v", err)
	}

	partial, err := env.routes.FinishRoute(ctx, env.tenant.ID, 21, []uint{first.Order.ID}, "courier")
	if err != nil {
		t.Fatalf("finish first failed: %v", err)
	}
	if partial.Phase != constants.RoutePhaseStarted {
		t.Fatalf("route should stay started while orders remain, got %s", partial.Phase)
	}
	if _, err := env.routes.FinishRoute(ctx, env.tenant.ID, 21, []uint{first.Order.ID}, "courier"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("finishing a delivered order should be invalid, got %v", err)
	}
	done, err := env.routes.FinishRoute(ctx, env.tenant.ID, 21, []uint{second.ID}, "courier")
	if err != nil {
		t.Fatalf("finish second failed: %v", err)
	}
	if done.Phase != constants.RoutePhaseFinished || done.FinishedAt == nil {
		t.Fatalf("route should be finished, got %s", done.Phase)
	}
	if env.publisher.count("route.finished") != 1 {
		t.Fatalf("expected route.finished event")
	}
	if _, err := env.routes.GetActiveRoute(env.tenant.ID, 21); !errors.Is(err, ErrNotFound) {
		t.Fatalf("finished courier should have no active route, got %v", err)
	}
}

func TestScanPublishesEachNewStopToSubscribers(t *testing.T) {
	env := setupComandaTest(t)
	ctx := context.Background()
	hub := realtime.NewHub(8)
	sub := hub.Subscribe(env.tenant.ID, func(e realtime.Event) bool { return e.ResourceType == constants.ResourceRoute })
	defer sub.Close()
	routes := NewDeliveryRouteService(repository.NewDeliveryRouteRepository(env.db), env.orderRepo, env.tokens, nil, realtime.NewBus(hub))

	var raws []string
	for i := 0; i < 2; i++ {
		order := createTestOrderRow(t, env, constants.OrderOriginDelivery, constants.OrderStatusReady, nil, time.Now())
		issued, err := env.tokens.Issue(env.tenant.ID, constants.TokenKindDelivery, order.ID, 0, "test")
		if err != nil {
			t.Fatalf("issue delivery token failed: %v", err)
		}
		raws = append(raws, issued.Raw)
	}

	first, err := routes.Scan(ctx, env.tenant.ID, 5, raws[0])
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	second, err := routes.Scan(ctx, env.tenant.ID, 5, raws[1])
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if second.ID != first.ID || len(second.Stops) != 2 || second.Version <= first.Version {
		t.Fatalf("second scan should grow the same route, first v%d second v%d stops=%d", first.Version, second.Version, len(second.Stops))
	}
	if _, err := routes.Scan(ctx, env.tenant.ID, 5, raws[1]); err != nil {
		t.Fatalf("repeat scan failed: %v", err)
	}

	var got []string
	for len(sub.Events()) > 0 {
		got = append(got, (<-sub.Events()).Name())
	}
	if len(got) != 2 || got[0] != "route.created" || got[1] != "route.updated" {
		t.Fatalf("subscriber events = %v", got)
	}
}
