package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/provider"
	"github.com/comanda-next/internal/queue"
	"github.com/comanda-next/internal/repository"
	"github.com/comanda-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB, *models.Tenant) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.MenuForm{},
		&models.Contact{},
		&models.Ticket{},
		&models.Table{},
		&models.TableSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
		&models.AccessToken{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	tenant := &models.Tenant{Slug: "bistro", Name: "Bistro", Status: constants.StatusActive}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	contactRepo := repository.NewContactRepository(db)
	tokenService := service.NewTokenService(repository.NewAccessTokenRepository(db), service.TokenOptions{})
	tableService := service.NewTableService(repository.NewTableRepository(db), contactRepo, nil)
	orderService := service.NewOrderService(
		service.NewTenantService(repository.NewTenantRepository(db)),
		repository.NewMenuFormRepository(db),
		orderRepo,
		contactRepo,
		tableService,
		tokenService,
		nil,
		nil,
		service.OrderOptions{},
	)
	container := &provider.Container{
		Config:              &config.Config{},
		OrderRepo:           orderRepo,
		OrderService:        orderService,
		TokenService:        tokenService,
		NotificationService: service.NewNotificationService(config.NotifyConfig{}, orderRepo),
	}
	return NewConsumer(container), db, tenant
}

func createWorkerOrder(t *testing.T, db *gorm.DB, tenantID uint, status string) *models.Order {
	t.Helper()
	order := &models.Order{
		TenantID:    tenantID,
		Protocol:    fmt.Sprintf("W%d", time.Now().UnixNano()),
		Status:      status,
		Origin:      constants.OrderOriginCounter,
		Version:     1,
		SubmittedAt: time.Now(),
	}
	if err := repository.NewOrderRepository(db).Create(order, nil); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func newTask(t *testing.T, typename string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(typename, body)
}

func TestHandleOrderConfirmTimeoutCancelsNewOrder(t *testing.T) {
	consumer, db, tenant := setupWorkerTest(t)
	order := createWorkerOrder(t, db, tenant.ID, constants.OrderStatusNew)

	task := newTask(t, queue.TaskOrderConfirmTimeout, queue.OrderConfirmTimeoutPayload{TenantID: tenant.ID, OrderID: order.ID})
	if err := consumer.handleOrderConfirmTimeout(context.Background(), task); err != nil {
		t.Fatalf("handle timeout failed: %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCancelled {
		t.Fatalf("status want cancelled got %s", reloaded.Status)
	}
}

func TestHandleOrderConfirmTimeoutKeepsConfirmedOrder(t *testing.T) {
	consumer, db, tenant := setupWorkerTest(t)
	order := createWorkerOrder(t, db, tenant.ID, constants.OrderStatusConfirmed)

	task := newTask(t, queue.TaskOrderConfirmTimeout, queue.OrderConfirmTimeoutPayload{TenantID: tenant.ID, OrderID: order.ID})
	if err := consumer.handleOrderConfirmTimeout(context.Background(), task); err != nil {
		t.Fatalf("handle timeout failed: %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("status want confirmed got %s", reloaded.Status)
	}
}

func TestHandlersSkipInvalidPayload(t *testing.T) {
	consumer, _, _ := setupWorkerTest(t)
	ctx := context.Background()

	if err := consumer.handleOrderConfirmTimeout(ctx, newTask(t, queue.TaskOrderConfirmTimeout, queue.OrderConfirmTimeoutPayload{OrderID: 1})); err != nil {
		t.Fatalf("missing tenant should be skipped, got %v", err)
	}
	if err := consumer.handleResponderNotify(ctx, newTask(t, queue.TaskOrderResponderNotify, queue.ResponderNotifyPayload{TenantID: 1})); err != nil {
		t.Fatalf("missing order should be skipped, got %v", err)
	}
	if err := consumer.handleResponderNotify(ctx, asynq.NewTask(queue.TaskOrderResponderNotify, []byte("{"))); err == nil {
		t.Fatalf("malformed payload should return error")
	}
}

func TestHandleResponderNotifySkipsWithoutWebhook(t *testing.T) {
	consumer, db, tenant := setupWorkerTest(t)
	order := createWorkerOrder(t, db, tenant.ID, constants.OrderStatusConfirmed)

	task := newTask(t, queue.TaskOrderResponderNotify, queue.ResponderNotifyPayload{
		TenantID: tenant.ID,
		OrderID:  order.ID,
		Status:   constants.OrderStatusConfirmed,
	})
	if err := consumer.handleResponderNotify(context.Background(), task); err != nil {
		t.Fatalf("notify without webhook should be skipped, got %v", err)
	}
}
