package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event 资源变更事件，Snapshot 为变更后的完整资源
type Event struct {
	TenantID     uint                   `json:"tenant_id"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   uint                   `json:"resource_id"`
	Action       string                 `json:"action"`
	Version      uint64                 `json:"version"`
	Snapshot     json.RawMessage        `json:"snapshot"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// NewEvent 构建事件并序列化快照
func NewEvent(tenantID uint, resourceType string, resourceID uint, action string, version uint64, snapshot interface{}, meta map[string]interface{}) (Event, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s snapshot failed: %w", resourceType, err)
	}
	return Event{
		TenantID:     tenantID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Version:      version,
		Snapshot:     raw,
		Meta:         meta,
		OccurredAt:   time.Now(),
	}, nil
}

// Key 资源维度的分区键，同一资源的事件保持顺序
func (e Event) Key() string {
	return fmt.Sprintf("%d:%s:%d", e.TenantID, e.ResourceType, e.ResourceID)
}

// Name 事件名，如 table.occupied
func (e Event) Name() string {
	return e.ResourceType + "." + e.Action
}

// Publisher 事件发布接口：提交后调用，失败不回滚
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

// Publish 不做任何事
func (NopPublisher) Publish(context.Context, Event) {}
