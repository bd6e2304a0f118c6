package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/queue"
	"github.com/comanda-next/internal/realtime"
	"github.com/comanda-next/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	advanceMaxAttempts    = 3
	defaultProtocolPrefix = "CN"
)

// OrderOptions 订单流水线配置
type OrderOptions struct {
	ProtocolPrefix    string
	ConfirmTimeout    time.Duration
	RequireTableToken bool
}

// OrderService 订单流水线：公开下单、状态推进、改价、查询
type OrderService struct {
	tenantService *TenantService
	menuFormRepo  repository.MenuFormRepository
	orderRepo     repository.OrderRepository
	contactRepo   repository.ContactRepository
	tableService  *TableService
	tokenService  *TokenService
	queueClient   *queue.Client
	publisher     realtime.Publisher
	opts          OrderOptions
}

// NewOrderService 创建订单服务
func NewOrderService(
	tenantService *TenantService,
	menuFormRepo repository.MenuFormRepository,
	orderRepo repository.OrderRepository,
	contactRepo repository.ContactRepository,
	tableService *TableService,
	tokenService *TokenService,
	queueClient *queue.Client,
	publisher realtime.Publisher,
	opts OrderOptions,
) *OrderService {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if strings.TrimSpace(opts.ProtocolPrefix) == "" {
		opts.ProtocolPrefix = defaultProtocolPrefix
	}
	return &OrderService{
		tenantService: tenantService,
		menuFormRepo:  menuFormRepo,
		orderRepo:     orderRepo,
		contactRepo:   contactRepo,
		tableService:  tableService,
		tokenService:  tokenService,
		queueClient:   queueClient,
		publisher:     publisher,
		opts:          opts,
	}
}

// ResponderInput 下单人信息
type ResponderInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// LineItemInput 下单项
type LineItemInput struct {
	ProductRef string       `json:"product_ref"`
	Quantity   int          `json:"quantity"`
	UnitValue  models.Money `json:"unit_value"`
	GroupTag   string       `json:"group_tag"`
}

// SubmitOrderInput 公开下单参数
type SubmitOrderInput struct {
	TenantSlug string
	FormSlug   string
	Responder  ResponderInput
	Answers    map[string]interface{}
	Items      []LineItemInput
	Metadata   map[string]interface{}
	TableToken string
}

// SubmitOrderResult 下单结果；DeliveryToken 只返回一次
type SubmitOrderResult struct {
	Order         *models.Order `json:"order"`
	Occupancy     string        `json:"occupancy"`
	DeliveryToken string        `json:"delivery_token,omitempty"`
}

func validateLineItems(items []LineItemInput) ([]models.OrderItem, error) {
	if len(items) == 0 {
		return nil, validationError("at least one line item required")
	}
	result := make([]models.OrderItem, 0, len(items))
	for i, item := range items {
		ref := strings.TrimSpace(item.ProductRef)
		if ref == "" {
			return nil, validationError(fmt.Sprintf("line item %d: product_ref required", i+1))
		}
		if item.Quantity < 1 {
			return nil, validationError(fmt.Sprintf("line item %d: quantity must be at least 1", i+1))
		}
		if item.UnitValue.IsNegative() {
			return nil, validationError(fmt.Sprintf("line item %d: unit_value must not be negative", i+1))
		}
		result = append(result, models.OrderItem{
			ProductRef: ref,
			Quantity:   item.Quantity,
			UnitValue:  models.NewMoneyFromDecimal(item.UnitValue.Decimal),
			GroupTag:   strings.TrimSpace(item.GroupTag),
			Position:   i,
		})
	}
	return result, nil
}

// Submit 公开下单：订单总能落库，占台为尽力而为的附带动作
func (s *OrderService) Submit(ctx context.Context, input SubmitOrderInput) (*SubmitOrderResult, error) {
	tenant, err := s.tenantService.ResolveActive(input.TenantSlug)
	if err != nil {
		return nil, err
	}
	items, err := validateLineItems(input.Items)
	if err != nil {
		return nil, err
	}
	form, err := s.menuFormRepo.GetActiveBySlug(tenant.ID, input.FormSlug)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, opError(ErrNotFound, "menu "+strings.TrimSpace(input.FormSlug), 0, "")
	}
	answers, err := ValidateMenuAnswers(form.Schema, input.Answers)
	if err != nil {
		return nil, err
	}

	metadata := datatypes.JSONMap{}
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	table := s.resolveTableReference(ctx, tenant.ID, input.TableToken, metadata)
	delete(metadata, "table_id")

	origin := constants.OrderOriginCounter
	switch {
	case table != nil:
		origin = constants.OrderOriginTable
		metadata["table_label"] = table.Label
	case form.DefaultOrigin == constants.OrderOriginDelivery, metadataString(metadata, "origin") == constants.OrderOriginDelivery:
		origin = constants.OrderOriginDelivery
	}

	now := time.Now()
	order := &models.Order{
		TenantID:       tenant.ID,
		Protocol:       generateProtocol(s.opts.ProtocolPrefix, now),
		MenuFormID:     &form.ID,
		Status:         constants.OrderStatusNew,
		Origin:         origin,
		ResponderName:  strings.TrimSpace(input.Responder.Name),
		ResponderPhone: strings.TrimSpace(input.Responder.Phone),
		ResponderEmail: strings.ToLower(strings.TrimSpace(input.Responder.Email)),
		Answers:        datatypes.JSONMap(answers),
		Metadata:       metadata,
		Version:        1,
		SubmittedAt:    now,
	}
	if table != nil {
		order.TableID = &table.ID
	}

	var deliveryToken *IssuedToken
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		if err := repo.Create(order, items); err != nil {
			return err
		}
		if err := repo.CreateStatusLog(&models.OrderStatusLog{
			TenantID:   tenant.ID,
			OrderID:    order.ID,
			FromStatus: "",
			ToStatus:   constants.OrderStatusNew,
			Actor:      constants.ActorPublic,
		}); err != nil {
			return err
		}
		if origin == constants.OrderOriginDelivery && s.tokenService != nil {
			issued, err := s.tokenService.IssueWithTx(tx, tenant.ID, constants.TokenKindDelivery, order.ID, 0, constants.ActorPublic)
			if err != nil {
				return err
			}
			deliveryToken = issued
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	order.FillTotal()

	publishOrderEvent(ctx, s.publisher, order, constants.EventActionCreated, nil)
	s.scheduleConfirmTimeout(order)

	result := &SubmitOrderResult{
		Order:     order,
		Occupancy: s.occupyForOrder(ctx, order, table),
	}
	if deliveryToken != nil {
		result.DeliveryToken = deliveryToken.Raw
	}
	logger.Infow("order_submitted",
		"tenant_id", tenant.ID,
		"order_id", order.ID,
		"protocol", order.Protocol,
		"origin", order.Origin,
		"occupancy", result.Occupancy,
	)
	return result, nil
}

// resolveTableReference 优先使用桌台令牌；不要求令牌时接受 metadata.table_id
func (s *OrderService) resolveTableReference(ctx context.Context, tenantID uint, rawToken string, metadata datatypes.JSONMap) *models.Table {
	var tableID uint
	if strings.TrimSpace(rawToken) != "" && s.tokenService != nil {
		resourceID, err := s.tokenService.ResolveAndAuthorize(ctx, tenantID, rawToken, constants.TokenKindTable)
		if err != nil {
			logger.Warnw("order_table_token_rejected", "tenant_id", tenantID, "error", err)
			return nil
		}
		tableID = resourceID
	} else if !s.opts.RequireTableToken {
		tableID = metadataUint(metadata, "table_id")
	}
	if tableID == 0 || s.tableService == nil {
		return nil
	}
	table, err := s.tableService.Get(tenantID, tableID)
	if err != nil {
		logger.Warnw("order_table_reference_dropped", "tenant_id", tenantID, "table_id", tableID, "error", err)
		return nil
	}
	return table
}

// occupyForOrder 下单后的占台附带动作，失败只记录不影响下单
func (s *OrderService) occupyForOrder(ctx context.Context, order *models.Order, table *models.Table) string {
	if table == nil || s.tableService == nil {
		return constants.OccupancySkipped
	}
	contact, err := s.findOrCreateContact(order)
	if err != nil {
		logger.Warnw("order_contact_resolve_failed", "tenant_id", order.TenantID, "order_id", order.ID, "error", err)
		return constants.OccupancyFailed
	}
	current, err := s.tableService.occupyAt(ctx, order.TenantID, table.ID, contact.ID, nil, order.SubmittedAt)
	if err == nil {
		return constants.OccupancyOccupied
	}
	if errors.Is(err, ErrConflict) && current != nil {
		if current.OccupantContactID != nil && *current.OccupantContactID == contact.ID {
			return constants.OccupancyAlreadyOccupied
		}
		logger.Warnw("table_occupancy_mismatch",
			"tenant_id", order.TenantID,
			"order_id", order.ID,
			"table_id", table.ID,
			"contact_id", contact.ID,
		)
		return constants.OccupancyFailed
	}
	logger.Warnw("order_table_occupy_failed", "tenant_id", order.TenantID, "order_id", order.ID, "table_id", table.ID, "error", err)
	return constants.OccupancyFailed
}

func (s *OrderService) findOrCreateContact(order *models.Order) (*models.Contact, error) {
	if s.contactRepo == nil {
		return nil, errors.New("contact repository unavailable")
	}
	contact, err := s.contactRepo.FindByPhoneOrEmail(order.TenantID, order.ResponderPhone, order.ResponderEmail)
	if err != nil {
		return nil, err
	}
	if contact != nil {
		return contact, nil
	}
	contact = &models.Contact{
		TenantID: order.TenantID,
		Name:     order.ResponderName,
		Phone:    order.ResponderPhone,
		Email:    order.ResponderEmail,
	}
	if err := s.contactRepo.Create(contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *OrderService) scheduleConfirmTimeout(order *models.Order) {
	if s.opts.ConfirmTimeout <= 0 || !s.queueClient.Enabled() {
		return
	}
	payload := queue.OrderConfirmTimeoutPayload{TenantID: order.TenantID, OrderID: order.ID}
	if err := s.queueClient.EnqueueOrderConfirmTimeout(payload, s.opts.ConfirmTimeout); err != nil {
		logger.Warnw("order_enqueue_confirm_timeout_failed", "tenant_id", order.TenantID, "order_id", order.ID, "error", err)
	}
}

func enqueueResponderNotify(client *queue.Client, order *models.Order) {
	if order == nil || !client.Enabled() {
		return
	}
	payload := queue.ResponderNotifyPayload{
		TenantID: order.TenantID,
		OrderID:  order.ID,
		Status:   order.Status,
	}
	if order.RouteID != nil {
		payload.RouteID = *order.RouteID
	}
	if err := client.EnqueueResponderNotify(payload); err != nil {
		logger.Warnw("order_enqueue_responder_notify_failed",
			"tenant_id", order.TenantID,
			"order_id", order.ID,
			"status", order.Status,
			"error", err,
		)
	}
}

// Advance 推进订单状态；并发冲突时重读最新状态后重新判断
func (s *OrderService) Advance(ctx context.Context, tenantID, orderID uint, target, actor string) (*models.Order, error) {
	target = normalizeOrderStatus(target)
	if !IsKnownOrderStatus(target) {
		return nil, validationError("unknown status " + target)
	}
	for attempt := 0; attempt < advanceMaxAttempts; attempt++ {
		order, err := s.Get(tenantID, orderID)
		if err != nil {
			return nil, err
		}
		if !CanAdvance(order.Status, target) {
			return nil, opError(ErrInvalidTransition, constants.ResourceOrder, orderID,
				fmt.Sprintf("%s -> %s", order.Status, target))
		}
		from := order.Status
		applied := false
		err = models.DB.Transaction(func(tx *gorm.DB) error {
			ok, err := advanceOrderInTx(s.orderRepo.WithTx(tx), order, target, actor, nil)
			applied = ok
			return err
		})
		if err != nil {
			return nil, err
		}
		if !applied {
			logger.Debugw("order_advance_retry", "tenant_id", tenantID, "order_id", orderID, "attempt", attempt+1)
			continue
		}
		updated, err := s.Get(tenantID, orderID)
		if err != nil {
			return nil, err
		}
		publishOrderStatusChanged(ctx, s.publisher, updated, from)
		enqueueResponderNotify(s.queueClient, updated)
		return updated, nil
	}
	return nil, opError(ErrConflict, constants.ResourceOrder, orderID, "concurrent modification")
}

// advanceOrderInTx 在事务内按观察到的状态做 CAS 并写流转记录，返回是否命中
func advanceOrderInTx(repo *repository.GormOrderRepository, order *models.Order, target, actor string, updates map[string]interface{}) (bool, error) {
	ok, err := repo.CompareAndSetStatus(order.TenantID, order.ID, order.Status, target, updates)
	if err != nil || !ok {
		return false, err
	}
	if err := repo.CreateStatusLog(&models.OrderStatusLog{
		TenantID:   order.TenantID,
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   target,
		Actor:      actor,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// CancelIfUnconfirmed 超时任务：订单仍为 new 时取消
func (s *OrderService) CancelIfUnconfirmed(ctx context.Context, tenantID, orderID uint) error {
	order, err := s.orderRepo.GetByID(tenantID, orderID)
	if err != nil {
		return err
	}
	if order == nil || order.Status != constants.OrderStatusNew {
		return nil
	}
	_, err = s.Advance(ctx, tenantID, orderID, constants.OrderStatusCancelled, constants.ActorSystem)
	if errors.Is(err, ErrInvalidTransition) {
		return nil
	}
	return err
}

// SetTotalOverride 设置或清除人工改价
func (s *OrderService) SetTotalOverride(ctx context.Context, tenantID, orderID uint, override *models.Money) (*models.Order, error) {
	if override != nil && override.IsNegative() {
		return nil, validationError("total override must not be negative")
	}
	if override != nil {
		normalized := models.NewMoneyFromDecimal(override.Decimal)
		override = &normalized
	}
	ok, err := s.orderRepo.UpdateTotalOverride(tenantID, orderID, override)
	if err != nil {
		return nil, err
	}
	order, err := s.Get(tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, opError(ErrInvalidTransition, constants.ResourceOrder, orderID, "order is closed")
	}
	publishOrderEvent(ctx, s.publisher, order, constants.EventActionUpdated, nil)
	return order, nil
}

func generateProtocol(prefix string, now time.Time) string {
	return fmt.Sprintf("%s%s%s", prefix, now.Format("20060102150405"), randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(strconv.FormatInt(n.Int64(), 10))
	}
	return b.String()
}

func metadataString(metadata datatypes.JSONMap, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(value))
}

func metadataUint(metadata datatypes.JSONMap, key string) uint {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case float64:
		if v > 0 {
			return uint(v)
		}
	case int:
		if v > 0 {
			return uint(v)
		}
	case uint:
		return v
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return uint(parsed)
		}
	}
	return 0
}
