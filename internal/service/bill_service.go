package service

import (
	"context"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/repository"
)

// BillService 桌台账单汇总
type BillService struct {
	orderRepo    repository.OrderRepository
	tableService *TableService
}

// NewBillService 创建账单服务
func NewBillService(orderRepo repository.OrderRepository, tableService *TableService) *BillService {
	return &BillService{orderRepo: orderRepo, tableService: tableService}
}

// SessionBill 桌台本次占用的账单
type SessionBill struct {
	TableID uint           `json:"table_id"`
	Since   time.Time      `json:"since"`
	Orders  []models.Order `json:"orders"`
	Total   models.Money   `json:"total"`
}

// ComputeSessionTotal 汇总 since 之后该桌台未取消的订单，只读
func (s *BillService) ComputeSessionTotal(tenantID, tableID uint, since time.Time) (*SessionBill, error) {
	if since.IsZero() {
		return nil, validationError("since required")
	}
	orders, err := s.orderRepo.ListForBill(repository.BillFilter{
		TenantID: tenantID,
		TableID:  tableID,
		Since:    since,
	})
	if err != nil {
		return nil, err
	}
	total := models.Money{}
	for i := range orders {
		total = total.Add(orders[i].Total())
	}
	return &SessionBill{
		TableID: tableID,
		Since:   since,
		Orders:  orders,
		Total:   total,
	}, nil
}

// CurrentSessionBill 未指定 since 时使用桌台当前的占用时间
func (s *BillService) CurrentSessionBill(tenantID, tableID uint, since *time.Time) (*SessionBill, error) {
	table, err := s.tableService.Get(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	if since != nil && !since.IsZero() {
		return s.ComputeSessionTotal(tenantID, tableID, *since)
	}
	if table.Status != constants.TableStatusOccupied || table.OccupiedAt == nil {
		return nil, validationError("table is free, since required")
	}
	return s.ComputeSessionTotal(tenantID, tableID, *table.OccupiedAt)
}

// CloseSession 结账：先按占用时间快照计算账单，再释放桌台
func (s *BillService) CloseSession(ctx context.Context, tenantID, tableID uint, actor string) (*SessionBill, *models.Table, error) {
	bill, err := s.CurrentSessionBill(tenantID, tableID, nil)
	if err != nil {
		return nil, nil, err
	}
	table, err := s.tableService.Release(ctx, tenantID, tableID, actor)
	if err != nil {
		return nil, nil, err
	}
	return bill, table, nil
}
