package queue

import (
	"encoding/json"

	"github.com/comanda-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderResponderNotify 下单人状态通知任务
	TaskOrderResponderNotify = constants.TaskOrderResponderNotify
	// TaskOrderConfirmTimeout 未确认订单超时取消任务
	TaskOrderConfirmTimeout = constants.TaskOrderConfirmTimeout
)

// ResponderNotifyPayload 下单人状态通知载荷
type ResponderNotifyPayload struct {
	TenantID uint   `json:"tenant_id"`
	OrderID  uint   `json:"order_id"`
	Status   string `json:"status"`
	RouteID  uint   `json:"route_id,omitempty"`
}

// OrderConfirmTimeoutPayload 超时取消载荷
type OrderConfirmTimeoutPayload struct {
	TenantID uint `json:"tenant_id"`
	OrderID  uint `json:"order_id"`
}

// NewResponderNotifyTask 创建下单人通知任务
func NewResponderNotifyTask(payload ResponderNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderResponderNotify, body), nil
}

// NewOrderConfirmTimeoutTask 创建超时取消任务
func NewOrderConfirmTimeoutTask(payload OrderConfirmTimeoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderConfirmTimeout, body), nil
}
