package service

import (
	"context"
	"fmt"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/queue"
	"github.com/comanda-next/internal/realtime"
	"github.com/comanda-next/internal/repository"

	"gorm.io/gorm"
)

// DeliveryRouteService 配送路线：扫码集单、出发、送达
type DeliveryRouteService struct {
	routeRepo    repository.DeliveryRouteRepository
	orderRepo    repository.OrderRepository
	tokenService *TokenService
	queueClient  *queue.Client
	publisher    realtime.Publisher
}

// NewDeliveryRouteService 创建配送路线服务
func NewDeliveryRouteService(routeRepo repository.DeliveryRouteRepository, orderRepo repository.OrderRepository, tokenService *TokenService, queueClient *queue.Client, publisher realtime.Publisher) *DeliveryRouteService {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &DeliveryRouteService{
		routeRepo:    routeRepo,
		orderRepo:    orderRepo,
		tokenService: tokenService,
		queueClient:  queueClient,
		publisher:    publisher,
	}
}

type orderTransition struct {
	order *models.Order
	from  string
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// Scan 骑手扫描配送令牌，把订单加入自己正在集单的路线
func (s *DeliveryRouteService) Scan(ctx context.Context, tenantID, courierID uint, raw string) (*models.DeliveryRoute, error) {
	if courierID == 0 {
		return nil, validationError("courier required")
	}
	orderID, err := s.tokenService.ResolveAndAuthorize(ctx, tenantID, raw, constants.TokenKindDelivery)
	if err != nil {
		return nil, err
	}

	var routeID uint
	created := false
	added := false
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		routeRepo := s.routeRepo.WithTx(tx)

		order, err := orderRepo.GetByID(tenantID, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return opError(ErrNotFound, constants.ResourceOrder, orderID, "")
		}
		if !CanAdvance(order.Status, constants.OrderStatusOutForDelivery) {
			return opError(ErrInvalidTransition, constants.ResourceOrder, orderID, "order cannot go out for delivery")
		}
		owner, err := routeRepo.FindActiveStopOwner(tenantID, orderID, courierID)
		if err != nil {
			return err
		}
		if owner != nil {
			return opError(ErrConflict, constants.ResourceOrder, orderID, "order belongs to another courier route")
		}

		route, err := routeRepo.GetByCourierAndPhase(tenantID, courierID, constants.RoutePhaseCollecting)
		if err != nil {
			return err
		}
		if route == nil {
			route = &models.DeliveryRoute{
				TenantID:  tenantID,
				CourierID: courierID,
				Phase:     constants.RoutePhaseCollecting,
				Version:   1,
			}
			if err := routeRepo.Create(route); err != nil {
				return err
			}
			created = true
		}
		routeID = route.ID
		added, err = routeRepo.AddStop(&models.DeliveryRouteStop{
			TenantID: tenantID,
			RouteID:  route.ID,
			OrderID:  orderID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	route, err := s.getRoute(tenantID, routeID)
	if err != nil {
		return nil, err
	}
	switch {
	case created:
		publishRouteEvent(ctx, s.publisher, route, constants.EventActionCreated)
	case added:
		publishRouteEvent(ctx, s.publisher, route, constants.EventActionUpdated)
	}
	return route, nil
}

// StartRoute 出发：全部订单转为配送中，任一订单不满足则整体失败
func (s *DeliveryRouteService) StartRoute(ctx context.Context, tenantID, courierID uint, orderIDs []uint, actor string) (*models.DeliveryRoute, error) {
	if courierID == 0 {
		return nil, validationError("courier required")
	}
	ids := dedupeIDs(orderIDs)
	if len(ids) == 0 {
		return nil, validationError("order ids required")
	}

	var routeID uint
	var transitions []orderTransition
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		routeRepo := s.routeRepo.WithTx(tx)

		running, err := routeRepo.GetByCourierAndPhase(tenantID, courierID, constants.RoutePhaseStarted)
		if err != nil {
			return err
		}
		if running != nil {
			return opError(ErrConflict, constants.ResourceRoute, running.ID, "courier already has a started route")
		}

		orders := make([]*models.Order, 0, len(ids))
		for _, id := range ids {
			order, err := orderRepo.GetByID(tenantID, id)
			if err != nil {
				return err
			}
			if order == nil {
				return opError(ErrNotFound, constants.ResourceOrder, id, "")
			}
			owner, err := routeRepo.FindActiveStopOwner(tenantID, id, courierID)
			if err != nil {
				return err
			}
			if owner != nil {
				return opError(ErrConflict, constants.ResourceOrder, id, fmt.Sprintf("order belongs to route %d", owner.ID))
			}
			if order.Origin != constants.OrderOriginDelivery && order.Status != constants.OrderStatusReady {
				return opError(ErrInvalidTransition, constants.ResourceOrder, id, "order is not a delivery order and not ready")
			}
			if !CanAdvance(order.Status, constants.OrderStatusOutForDelivery) {
				return opError(ErrInvalidTransition, constants.ResourceOrder, id,
					fmt.Sprintf("%s -> %s", order.Status, constants.OrderStatusOutForDelivery))
			}
			orders = append(orders, order)
		}

		now := time.Now()
		route, err := routeRepo.GetByCourierAndPhase(tenantID, courierID, constants.RoutePhaseCollecting)
		if err != nil {
			return err
		}
		if route != nil {
			ok, err := routeRepo.SetPhase(tenantID, route.ID, constants.RoutePhaseCollecting, constants.RoutePhaseStarted,
				map[string]interface{}{"started_at": now})
			if err != nil {
				return err
			}
			if !ok {
				return opError(ErrConflict, constants.ResourceRoute, route.ID, "route changed concurrently")
			}
			if err := routeRepo.RemoveStopsExcept(tenantID, route.ID, ids); err != nil {
				return err
			}
		} else {
			route = &models.DeliveryRoute{
				TenantID:  tenantID,
				CourierID: courierID,
				Phase:     constants.RoutePhaseStarted,
				StartedAt: &now,
				Version:   1,
			}
			if err := routeRepo.Create(route); err != nil {
				return err
			}
		}
		routeID = route.ID

		for _, order := range orders {
			from := order.Status
			ok, err := advanceOrderInTx(orderRepo, order, constants.OrderStatusOutForDelivery, actor,
				map[string]interface{}{"route_id": route.ID})
			if err != nil {
				return err
			}
			if !ok {
				return opError(ErrConflict, constants.ResourceOrder, order.ID, "order changed concurrently")
			}
			if _, err := routeRepo.AddStop(&models.DeliveryRouteStop{
				TenantID: tenantID,
				RouteID:  route.ID,
				OrderID:  order.ID,
			}); err != nil {
				return err
			}
			transitions = append(transitions, orderTransition{order: order, from: from})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishTransitions(ctx, tenantID, transitions)
	route, err := s.getRoute(tenantID, routeID)
	if err != nil {
		return nil, err
	}
	publishRouteEvent(ctx, s.publisher, route, constants.EventActionStarted)
	logger.Infow("delivery_route_started", "tenant_id", tenantID, "route_id", routeID, "courier_id", courierID, "order_count", len(ids))
	return route, nil
}

// FinishRoute 送达：订单转为已送达，路线上没有配送中的订单时完成路线
func (s *DeliveryRouteService) FinishRoute(ctx context.Context, tenantID, courierID uint, orderIDs []uint, actor string) (*models.DeliveryRoute, error) {
	ids := dedupeIDs(orderIDs)
	if len(ids) == 0 {
		return nil, validationError("order ids required")
	}

	var routeID uint
	finished := false
	var transitions []orderTransition
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		routeRepo := s.routeRepo.WithTx(tx)

		route, err := routeRepo.GetByCourierAndPhase(tenantID, courierID, constants.RoutePhaseStarted)
		if err != nil {
			return err
		}
		if route == nil {
			return opError(ErrConflict, constants.ResourceRoute, 0, "courier has no started route")
		}
		routeID = route.ID
		members := make(map[uint]struct{}, len(route.Stops))
		for _, stop := range route.Stops {
			members[stop.OrderID] = struct{}{}
		}

		orders := make([]*models.Order, 0, len(ids))
		for _, id := range ids {
			order, err := orderRepo.GetByID(tenantID, id)
			if err != nil {
				return err
			}
			if order == nil {
				return opError(ErrNotFound, constants.ResourceOrder, id, "")
			}
			if _, ok := members[id]; !ok {
				return opError(ErrConflict, constants.ResourceOrder, id, "order is not on this route")
			}
			if order.Status != constants.OrderStatusOutForDelivery {
				return opError(ErrInvalidTransition, constants.ResourceOrder, id,
					fmt.Sprintf("%s -> %s", order.Status, constants.OrderStatusDelivered))
			}
			orders = append(orders, order)
		}

		for _, order := range orders {
			from := order.Status
			ok, err := advanceOrderInTx(orderRepo, order, constants.OrderStatusDelivered, actor, nil)
			if err != nil {
				return err
			}
			if !ok {
				return opError(ErrConflict, constants.ResourceOrder, order.ID, "order changed concurrently")
			}
			transitions = append(transitions, orderTransition{order: order, from: from})
		}

		remaining, err := routeRepo.CountMembersInStatus(tenantID, route.ID, constants.OrderStatusOutForDelivery)
		if err != nil {
			return err
		}
		if remaining == 0 {
			ok, err := routeRepo.SetPhase(tenantID, route.ID, constants.RoutePhaseStarted, constants.RoutePhaseFinished,
				map[string]interface{}{"finished_at": time.Now()})
			if err != nil {
				return err
			}
			finished = ok
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishTransitions(ctx, tenantID, transitions)
	route, err := s.getRoute(tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if finished {
		publishRouteEvent(ctx, s.publisher, route, constants.EventActionFinished)
	}
	return route, nil
}

// GetActiveRoute 骑手当前路线：优先已出发，其次集单中
func (s *DeliveryRouteService) GetActiveRoute(tenantID, courierID uint) (*models.DeliveryRoute, error) {
	for _, phase := range []string{constants.RoutePhaseStarted, constants.RoutePhaseCollecting} {
		route, err := s.routeRepo.GetByCourierAndPhase(tenantID, courierID, phase)
		if err != nil {
			return nil, err
		}
		if route != nil {
			return route, nil
		}
	}
	return nil, opError(ErrNotFound, constants.ResourceRoute, 0, "no active route")
}

func (s *DeliveryRouteService) getRoute(tenantID, routeID uint) (*models.DeliveryRoute, error) {
	route, err := s.routeRepo.GetByID(tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, opError(ErrNotFound, constants.ResourceRoute, routeID, "")
	}
	return route, nil
}

func (s *DeliveryRouteService) publishTransitions(ctx context.Context, tenantID uint, transitions []orderTransition) {
	for _, item := range transitions {
		current, err := s.orderRepo.GetByID(tenantID, item.order.ID)
		if err != nil || current == nil {
			logger.Warnw("delivery_route_order_reload_failed", "tenant_id", tenantID, "order_id", item.order.ID, "error", err)
			continue
		}
		publishOrderStatusChanged(ctx, s.publisher, current, item.from)
		enqueueResponderNotify(s.queueClient, current)
	}
}
