package service

import (
	"context"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/realtime"
)

func publishEvent(ctx context.Context, publisher realtime.Publisher, tenantID uint, resourceType string, resourceID uint, action string, version uint64, snapshot interface{}, meta map[string]interface{}) {
	if publisher == nil {
		return
	}
	event, err := realtime.NewEvent(tenantID, resourceType, resourceID, action, version, snapshot, meta)
	if err != nil {
		logger.Warnw("realtime_event_build_failed",
			"tenant_id", tenantID,
			"resource_type", resourceType,
			"resource_id", resourceID,
			"action", action,
			"error", err,
		)
		return
	}
	publisher.Publish(ctx, event)
}

func publishTableEvent(ctx context.Context, publisher realtime.Publisher, table *models.Table, action string) {
	if table == nil {
		return
	}
	publishEvent(ctx, publisher, table.TenantID, constants.ResourceTable, table.ID, action, table.Version, table, nil)
}

func publishOrderEvent(ctx context.Context, publisher realtime.Publisher, order *models.Order, action string, meta map[string]interface{}) {
	if order == nil {
		return
	}
	publishEvent(ctx, publisher, order.TenantID, constants.ResourceOrder, order.ID, action, order.Version, order, meta)
}

func publishOrderStatusChanged(ctx context.Context, publisher realtime.Publisher, order *models.Order, from string) {
	if order == nil {
		return
	}
	publishOrderEvent(ctx, publisher, order, constants.EventActionStatusChanged, map[string]interface{}{
		"orderId": order.ID,
		"from":    from,
		"to":      order.Status,
	})
}

func publishRouteEvent(ctx context.Context, publisher realtime.Publisher, route *models.DeliveryRoute, action string) {
	if route == nil {
		return
	}
	publishEvent(ctx, publisher, route.TenantID, constants.ResourceRoute, route.ID, action, route.Version, route, map[string]interface{}{
		"courierId": route.CourierID,
		"orderIds":  route.OrderIDs(),
	})
}
