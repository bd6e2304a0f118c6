package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/queue"
)

func TestNotifyResponderPostsWebhook(t *testing.T) {
	env := setupComandaTest(t)
	order := createTestOrderRow(t, env, constants.OrderOriginDelivery, constants.OrderStatusOutForDelivery, nil, time.Now())
	env.db.Model(order).Updates(map[string]interface{}{"responder_name": "Bia", "responder_phone": "555-2222"})

	received := make(chan ResponderNotification, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ResponderNotification
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	svc := NewNotificationService(config.NotifyConfig{WebhookURL: server.URL, TimeoutMS: 2000}, env.orderRepo)
	err := svc.NotifyResponder(context.Background(), queue.ResponderNotifyPayload{
		TenantID: env.tenant.ID,
		OrderID:  order.ID,
		Status:   constants.OrderStatusOutForDelivery,
		RouteID:  3,
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	body := <-received
	if body.OrderID != order.ID || body.Phone != "555-2222" || body.RouteID != 3 || body.Status != constants.OrderStatusOutForDelivery {
		t.Fatalf("unexpected webhook body: %+v", body)
	}
}

func TestNotifyResponderFailsOnServerError(t *testing.T) {
	env := setupComandaTest(t)
	order := createTestOrderRow(t, env, constants.OrderOriginCounter, constants.OrderStatusReady, nil, time.Now())
	env.db.Model(order).Update("responder_email", "guest@example.com")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewNotificationService(config.NotifyConfig{WebhookURL: server.URL}, env.orderRepo)
	if err := svc.NotifyResponder(context.Background(), queue.ResponderNotifyPayload{TenantID: env.tenant.ID, OrderID: order.ID, Status: order.Status}); err == nil {
		t.Fatalf("expected error on 502 response")
	}
}

func TestNotifyResponderSkippedWithoutWebhook(t *testing.T) {
	svc := NewNotificationService(config.NotifyConfig{}, nil)
	if svc.Enabled() {
		t.Fatalf("service without webhook should be disabled")
	}
	if err := svc.NotifyResponder(context.Background(), queue.ResponderNotifyPayload{OrderID: 1}); err != nil {
		t.Fatalf("disabled notify should be a no-op, got %v", err)
	}
}
