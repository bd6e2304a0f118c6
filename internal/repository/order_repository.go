package repository

import (
	"errors"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(tenantID, id uint) (*models.Order, error)
	CompareAndSetStatus(tenantID, id uint, from, to string, updates map[string]interface{}) (bool, error)
	UpdateTotalOverride(tenantID, id uint, override *models.Money) (bool, error)
	CreateStatusLog(log *models.OrderStatusLog) error
	ListStatusLogs(tenantID, orderID uint) ([]models.OrderStatusLog, error)
	ListPending(tenantID uint) ([]models.Order, error)
	ListHistory(filter OrderHistoryFilter) ([]models.Order, int64, error)
	ListForBill(filter BillFilter) ([]models.Order, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// PendingStatuses 队列视图中的状态
var PendingStatuses = []string{
	constants.OrderStatusNew,
	constants.OrderStatusConfirmed,
	constants.OrderStatusPreparing,
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc, id asc")
	})
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID 根据 ID 获取租户内订单
func (r *GormOrderRepository) GetByID(tenantID, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withItems(r.db).Where("id = ? AND tenant_id = ?", id, tenantID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	order.FillTotal()
	return &order, nil
}

// CompareAndSetStatus 仅当持久化状态仍为 from 时写入 to，返回是否命中
func (r *GormOrderRepository) CompareAndSetStatus(tenantID, id uint, from, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["version"] = gorm.Expr("version + 1")
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateTotalOverride 设置或清除人工改价（终态订单不可改）
func (r *GormOrderRepository) UpdateTotalOverride(tenantID, id uint, override *models.Money) (bool, error) {
	var value interface{}
	if override != nil {
		value = *override
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND tenant_id = ? AND status NOT IN ?", id, tenantID,
			[]string{constants.OrderStatusDelivered, constants.OrderStatusCancelled}).
		Updates(map[string]interface{}{
			"total_override": value,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CreateStatusLog 写入状态流转记录
func (r *GormOrderRepository) CreateStatusLog(log *models.OrderStatusLog) error {
	if log == nil {
		return nil
	}
	return r.db.Create(log).Error
}

// ListStatusLogs 订单状态流转记录
func (r *GormOrderRepository) ListStatusLogs(tenantID, orderID uint) ([]models.OrderStatusLog, error) {
	var logs []models.OrderStatusLog
	if err := r.db.Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("id asc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListPending 待处理队列：按提交时间先后排序
func (r *GormOrderRepository) ListPending(tenantID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := r.withItems(r.db).
		Where("tenant_id = ? AND status IN ?", tenantID, PendingStatuses).
		Order("submitted_at asc, id asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	fillTotals(orders)
	return orders, nil
}

// ListHistory 订单历史
func (r *GormOrderRepository) ListHistory(filter OrderHistoryFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{}).Where("tenant_id = ?", filter.TenantID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Origin != "" {
		query = query.Where("origin = ?", filter.Origin)
	}
	if filter.TableID != 0 {
		query = query.Where("table_id = ?", filter.TableID)
	}
	if filter.SubmittedFrom != nil {
		query = query.Where("submitted_at >= ?", *filter.SubmittedFrom)
	}
	if filter.SubmittedTo != nil {
		query = query.Where("submitted_at <= ?", *filter.SubmittedTo)
	}
	query = query.Scopes(keywordScope(filter.Keyword,
		[]string{"protocol", "responder_name", "responder_phone", "responder_email"},
		[]string{"metadata"},
	))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))
	if err := r.withItems(query).Order("submitted_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	fillTotals(orders)
	return orders, total, nil
}

// ListForBill 桌台本次占用期间的有效订单
func (r *GormOrderRepository) ListForBill(filter BillFilter) ([]models.Order, error) {
	var orders []models.Order
	if err := r.withItems(r.db).
		Where("tenant_id = ? AND origin = ? AND table_id = ? AND submitted_at >= ? AND status <> ?",
			filter.TenantID, constants.OrderOriginTable, filter.TableID, filter.Since, constants.OrderStatusCancelled).
		Order("submitted_at asc, id asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	fillTotals(orders)
	return orders, nil
}

func fillTotals(orders []models.Order) {
	for i := range orders {
		orders[i].FillTotal()
	}
}
