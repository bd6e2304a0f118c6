package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/provider"
	"github.com/comanda-next/internal/queue"
	"github.com/comanda-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderResponderNotify, c.handleResponderNotify)
	mux.HandleFunc(queue.TaskOrderConfirmTimeout, c.handleOrderConfirmTimeout)
}

func (c *Consumer) handleResponderNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_responder_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ResponderNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_responder_notify_unmarshal_failed", "error", err)
		return err
	}
	if !validTenantOrder(payload.TenantID, payload.OrderID) {
		logger.Debugw("worker_responder_notify_skip_invalid_payload", "tenant_id", payload.TenantID, "order_id", payload.OrderID)
		return nil
	}
	if c.NotificationService == nil || !c.NotificationService.Enabled() {
		logger.Debugw("worker_responder_notify_skip_disabled", "order_id", payload.OrderID)
		return nil
	}
	if err := c.NotificationService.NotifyResponder(ctx, payload); err != nil {
		logger.ForTenant(payload.TenantID).Warnw("worker_responder_notify_failed",
			"order_id", payload.OrderID,
			"status", payload.Status,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderConfirmTimeout(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_confirm_timeout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderConfirmTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_confirm_timeout_unmarshal_failed", "error", err)
		return err
	}
	if !validTenantOrder(payload.TenantID, payload.OrderID) {
		logger.Debugw("worker_order_confirm_timeout_skip_invalid_payload", "tenant_id", payload.TenantID, "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_confirm_timeout_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	err := c.OrderService.CancelIfUnconfirmed(ctx, payload.TenantID, payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_order_confirm_timeout_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrConflict):
			// 并发推进导致条件更新落空，订单已离开 new
			logger.Debugw("worker_order_confirm_timeout_skip_concurrent_update", "order_id", payload.OrderID)
			return nil
		default:
			logger.ForTenant(payload.TenantID).Warnw("worker_order_confirm_timeout_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func validTenantOrder(tenantID, orderID uint) bool {
	return tenantID != 0 && orderID != 0
}
