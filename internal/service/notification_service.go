package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/queue"
	"github.com/comanda-next/internal/repository"

	"github.com/go-resty/resty/v2"
)

const defaultNotifyTimeout = 5 * time.Second

// NotificationService 下单人状态通知（Webhook 推送）
type NotificationService struct {
	client     *resty.Client
	webhookURL string
	orderRepo  repository.OrderRepository
}

// ResponderNotification Webhook 请求体
type ResponderNotification struct {
	Event      string    `json:"event"`
	TenantID   uint      `json:"tenant_id"`
	OrderID    uint      `json:"order_id"`
	Protocol   string    `json:"protocol"`
	Status     string    `json:"status"`
	RouteID    uint      `json:"route_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewNotificationService 创建通知服务
func NewNotificationService(cfg config.NotifyConfig, orderRepo repository.OrderRepository) *NotificationService {
	timeout := defaultNotifyTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &NotificationService{
		client:     resty.New().SetTimeout(timeout),
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		orderRepo:  orderRepo,
	}
}

// Enabled 是否配置了 Webhook
func (s *NotificationService) Enabled() bool {
	return s != nil && s.webhookURL != ""
}

// NotifyResponder 推送订单状态给下单人；未配置 Webhook 时跳过
func (s *NotificationService) NotifyResponder(ctx context.Context, payload queue.ResponderNotifyPayload) error {
	if !s.Enabled() {
		return nil
	}
	order, err := s.orderRepo.GetByID(payload.TenantID, payload.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		logger.Warnw("responder_notify_order_missing", "tenant_id", payload.TenantID, "order_id", payload.OrderID)
		return nil
	}
	if order.ResponderPhone == "" && order.ResponderEmail == "" {
		return nil
	}
	body := ResponderNotification{
		Event:      "order.status",
		TenantID:   order.TenantID,
		OrderID:    order.ID,
		Protocol:   order.Protocol,
		Status:     payload.Status,
		RouteID:    payload.RouteID,
		Name:       order.ResponderName,
		Phone:      order.ResponderPhone,
		Email:      order.ResponderEmail,
		OccurredAt: time.Now(),
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(body).
		Post(s.webhookURL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("responder webhook failed with status %d", resp.StatusCode())
	}
	logger.Debugw("responder_notify_sent", "tenant_id", order.TenantID, "order_id", order.ID, "status", payload.Status)
	return nil
}
