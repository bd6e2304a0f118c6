package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/realtime"
	"github.com/comanda-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, event := range p.events {
		names = append(names, event.Name())
	}
	return names
}

func (p *recordingPublisher) count(name string) int {
	n := 0
	for _, item := range p.names() {
		if item == name {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type comandaTestEnv struct {
	db        *gorm.DB
	publisher *recordingPublisher
	tenant    *models.Tenant
	form      *models.MenuForm
	tables    *TableService
	orders    *OrderService
	routes    *DeliveryRouteService
	bills     *BillService
	tokens    *TokenService
	orderRepo *repository.GormOrderRepository
}

func setupComandaTest(t *testing.T) *comandaTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:comanda_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.DeliveryRoute{},
		&models.DeliveryRouteStop{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	tenant := createTestTenant(t, db, "bistro")
	form := &models.MenuForm{
		TenantID:      tenant.ID,
		Slug:          "dinner",
		Name:          "Dinner",
		DefaultOrigin: constants.OrderOriginCounter,
		IsActive:      true,
	}
	if err := db.Create(form).Error; err != nil {
		t.Fatalf("create menu form failed: %v", err)
	}

	publisher := &recordingPublisher{}
	tenantRepo := repository.NewTenantRepository(db)
	tableRepo := repository.NewTableRepository(db)
	contactRepo := repository.NewContactRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	menuFormRepo := repository.NewMenuFormRepository(db)
	tokenRepo := repository.NewAccessTokenRepository(db)
	routeRepo := repository.NewDeliveryRouteRepository(db)

	tokenService := NewTokenService(tokenRepo, TokenOptions{})
	tableService := NewTableService(tableRepo, contactRepo, publisher)
	orderService := NewOrderService(
		NewTenantService(tenantRepo),
		menuFormRepo,
		orderRepo,
		contactRepo,
		tableService,
		tokenService,
		nil,
		publisher,
		OrderOptions{},
	)
	return &comandaTestEnv{
		db:        db,
		publisher: publisher,
		tenant:    tenant,
		form:      form,
		tables:    tableService,
		orders:    orderService,
		routes:    NewDeliveryRouteService(routeRepo, orderRepo, tokenService, nil, publisher),
		bills:     NewBillService(orderRepo, tableService),
		tokens:    tokenService,
		orderRepo: orderRepo,
	}
}

func createTestTenant(t *testing.T, db *gorm.DB, slug string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Slug: slug, Name: slug, Status: constants.StatusActive}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}
	return tenant
}

func createTestContact(t *testing.T, db *gorm.DB, tenantID uint, phone string) *models.Contact {
	t.Helper()
	contact := &models.Contact{TenantID: tenantID, Name: "guest " + phone, Phone: phone}
	if err := db.Create(contact).Error; err != nil {
		t.Fatalf("create contact failed: %v", err)
	}
	return contact
}

func createTestTable(t *testing.T, env *comandaTestEnv, label string) *models.Table {
	t.Helper()
	table, err := env.tables.Create(context.Background(), env.tenant.ID, CreateTableInput{Label: label})
	if err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	return table
}

// createTestOrderRow 直接写库，绕过下单流程
func createTestOrderRow(t *testing.T, env *comandaTestEnv, origin, status string, tableID *uint, submittedAt time.Time, items ...models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{
		TenantID:    env.tenant.ID,
		Protocol:    fmt.Sprintf("T%d", time.Now().UnixNano()),
		Status:      status,
		Origin:      origin,
		TableID:     tableID,
		Version:     1,
		SubmittedAt: submittedAt,
	}
	if err := env.orderRepo.Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func mustMoney(t *testing.T, raw string) models.Money {
	t.Helper()
	money, err := models.NewMoneyFromString(raw)
	if err != nil {
		t.Fatalf("parse money %s failed: %v", raw, err)
	}
	return money
}
