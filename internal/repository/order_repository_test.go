package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_repo_test_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.Table{},
		&models.TableSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
		&models.AccessToken{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func createRepositoryTenant(t *testing.T, db *gorm.DB, slug string) models.Tenant {
	t.Helper()
	tenant := models.Tenant{Slug: slug, Name: slug, Status: constants.StatusActive}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}
	return tenant
}

func newRepositoryOrder(tenantID uint, protocol, status string, submittedAt time.Time) *models.Order {
	return &models.Order{
		TenantID:    tenantID,
		Protocol:    protocol,
		Status:      status,
		Origin:      constants.OrderOriginCounter,
		SubmittedAt: submittedAt,
	}
}

func TestOrderRepositoryCreateKeepsItemOrderAndTotals(t *testing.T) {
	db := setupRepositoryTestDB(t, "order_create")
	repo := NewOrderRepository(db)
	tenant := createRepositoryTenant(t, db, "bistro")
	now := time.Now().UTC().Truncate(time.Second)

	order := newRepositoryOrder(tenant.ID, "CM-0001", constants.OrderStatusNew, now)
	items := []models.OrderItem{
		{ProductRef: "soup", Quantity: 2, UnitValue: models.NewMoneyFromDecimal(decimal.RequireFromString("12.50")), Position: 1},
		{ProductRef: "bread", Quantity: 1, UnitValue: models.NewMoneyFromDecimal(decimal.RequireFromString("4")), Position: 0},
	}
	if err := repo.Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	got, err := repo.GetByID(tenant.ID, order.ID)
	if err != nil || got == nil {
		t.Fatalf("get order failed: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].ProductRef != "bread" {
		t.Fatalf("items should follow position order, got %+v", got.Items)
	}
	if got.TotalAmount.String() != "29.00" {
		t.Fatalf("total want 29.00 got %s", got.TotalAmount.String())
	}

	other, err := repo.GetByID(tenant.ID+1, order.ID)
	if err != nil || other != nil {
		t.Fatalf("order must not leak across tenants, got %+v, %v", other, err)
	}
}

func TestOrderRepositoryCompareAndSetStatus(t *testing.T) {
	db := setupRepositoryTestDB(t, "order_cas")
	repo := NewOrderRepository(db)
	tenant := createRepositoryTenant(t, db, "bistro")

	order := newRepositoryOrder(tenant.ID, "CM-0002", constants.OrderStatusNew, time.Now().UTC())
	if err := repo.Create(order, nil); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	ok, err := repo.CompareAndSetStatus(tenant.ID, order.ID, constants.OrderStatusNew, constants.OrderStatusConfirmed, nil)
	if err != nil || !ok {
		t.Fatalf("first transition should apply, got %v, %v", ok, err)
	}
	ok, err = repo.CompareAndSetStatus(tenant.ID, order.ID, constants.OrderStatusNew, constants.OrderStatusCancelled, nil)
	if err != nil || ok {
		t.Fatalf("stale transition should be rejected, got %v, %v", ok, err)
	}

	got, _ := repo.GetByID(tenant.ID, order.ID)
	if got.Status != constants.OrderStatusConfirmed {
		t.Fatalf("status want confirmed got %s", got.Status)
	}
}

func TestOrderRepositoryListHistoryKeywordAndPagination(t *testing.T) {
	db := setupRepositoryTestDB(t, "order_history")
	repo := NewOrderRepository(db)
	tenant := createRepositoryTenant(t, db, "bistro")
	other := createRepositoryTenant(t, db, "cantina")
	base := time.Now().UTC().Truncate(time.Second)

	first := newRepositoryOrder(tenant.ID, "CM-0101", constants.OrderStatusDelivered, base.Add(-2*time.Hour))
	first.ResponderName = "Ana Souza"
	second := newRepositoryOrder(tenant.ID, "CM-0102", constants.OrderStatusCancelled, base.Add(-time.Hour))
	second.Metadata = datatypes.JSONMap{"notes": "sem cebola"}
	third := newRepositoryOrder(tenant.ID, "CM-0103", constants.OrderStatusNew, base)
	foreign := newRepositoryOrder(other.ID, "CM-0104", constants.OrderStatusNew, base)
	foreign.ResponderName = "Ana Lima"
	for _, order := range []*models.Order{first, second, third, foreign} {
		if err := repo.Create(order, nil); err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	orders, total, err := repo.ListHistory(OrderHistoryFilter{TenantID: tenant.ID, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if total != 3 || len(orders) != 2 || orders[0].Protocol != "CM-0103" {
		t.Fatalf("unexpected first page: total=%d orders=%+v", total, orders)
	}

	orders, total, err = repo.ListHistory(OrderHistoryFilter{TenantID: tenant.ID, Keyword: "ana"})
	if err != nil {
		t.Fatalf("keyword search failed: %v", err)
	}
	if total != 1 || orders[0].ID != first.ID {
		t.Fatalf("keyword should match responder within tenant, got total=%d %+v", total, orders)
	}

	orders, _, err = repo.ListHistory(OrderHistoryFilter{TenantID: tenant.ID, Keyword: "cebola"})
	if err != nil {
		t.Fatalf("metadata search failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != second.ID {
		t.Fatalf("keyword should match metadata notes, got %+v", orders)
	}

	orders, _, err = repo.ListHistory(OrderHistoryFilter{TenantID: tenant.ID, Status: constants.OrderStatusCancelled})
	if err != nil || len(orders) != 1 || orders[0].ID != second.ID {
		t.Fatalf("status filter mismatch: %+v, %v", orders, err)
	}
}

func TestOrderRepositoryListForBillSkipsCancelledAndOlderSessions(t *testing.T) {
	db := setupRepositoryTestDB(t, "order_bill")
	repo := NewOrderRepository(db)
	tenant := createRepositoryTenant(t, db, "bistro")
	since := time.Now().UTC().Truncate(time.Second)
	tableID := uint(7)

	build := func(protocol, status string, at time.Time) *models.Order {
		order := newRepositoryOrder(tenant.ID, protocol, status, at)
		order.Origin = constants.OrderOriginTable
		order.TableID = &tableID
		return order
	}
	previous := build("CM-0201", constants.OrderStatusDelivered, since.Add(-time.Hour))
	current := build("CM-0202", constants.OrderStatusPreparing, since.Add(time.Minute))
	cancelled := build("CM-0203", constants.OrderStatusCancelled, since.Add(2*time.Minute))
	for _, order := range []*models.Order{previous, current, cancelled} {
		if err := repo.Create(order, []models.OrderItem{{ProductRef: "tea", Quantity: 1, UnitValue: models.NewMoneyFromDecimal(decimal.NewFromInt(5))}}); err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	orders, err := repo.ListForBill(BillFilter{TenantID: tenant.ID, TableID: tableID, Since: since})
	if err != nil {
		t.Fatalf("list for bill failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != current.ID {
		t.Fatalf("bill should contain only the live order of this session, got %+v", orders)
	}
}
