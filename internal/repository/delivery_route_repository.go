package repository

import (
	"errors"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryRouteRepository 配送路线数据访问接口
type DeliveryRouteRepository interface {
	Create(route *models.DeliveryRoute) error
	GetByID(tenantID, id uint) (*models.DeliveryRoute, error)
	GetByCourierAndPhase(tenantID, courierID uint, phase string) (*models.DeliveryRoute, error)
	AddStop(stop *models.DeliveryRouteStop) (bool, error)
	RemoveStopsExcept(tenantID, routeID uint, keep []uint) error
	SetPhase(tenantID, id uint, from, to string, updates map[string]interface{}) (bool, error)
	CountMembersInStatus(tenantID, routeID uint, status string) (int64, error)
	FindActiveStopOwner(tenantID, orderID, excludeCourierID uint) (*models.DeliveryRoute, error)
	WithTx(tx *gorm.DB) *GormDeliveryRouteRepository
}

// GormDeliveryRouteRepository GORM 实现
type GormDeliveryRouteRepository struct {
	db *gorm.DB
}

// NewDeliveryRouteRepository 创建配送路线仓库
func NewDeliveryRouteRepository(db *gorm.DB) *GormDeliveryRouteRepository {
	return &GormDeliveryRouteRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDeliveryRouteRepository) WithTx(tx *gorm.DB) *GormDeliveryRouteRepository {
	if tx == nil {
		return r
	}
	return &GormDeliveryRouteRepository{db: tx}
}

func (r *GormDeliveryRouteRepository) withStops(query *gorm.DB) *gorm.DB {
	return query.Preload("Stops", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

// Create 创建路线
func (r *GormDeliveryRouteRepository) Create(route *models.DeliveryRoute) error {
	return r.db.Omit("Stops").Create(route).Error
}

// GetByID 获取租户内路线（含成员）
func (r *GormDeliveryRouteRepository) GetByID(tenantID, id uint) (*models.DeliveryRoute, error) {
	var route models.DeliveryRoute
	if err := r.withStops(r.db).Where("id = ? AND tenant_id = ?", id, tenantID).First(&route).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &route, nil
}

// GetByCourierAndPhase 获取骑手处于指定阶段的最新路线
func (r *GormDeliveryRouteRepository) GetByCourierAndPhase(tenantID, courierID uint, phase string) (*models.DeliveryRoute, error) {
	var route models.DeliveryRoute
	err := r.withStops(r.db).
		Where("tenant_id = ? AND courier_id = ? AND phase = ?", tenantID, courierID, phase).
		Order("id desc").
		First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &route, nil
}

// AddStop 加入路线成员，重复加入不报错，返回是否新增；新增成员时路线版本加一
func (r *GormDeliveryRouteRepository) AddStop(stop *models.DeliveryRouteStop) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "route_id"}, {Name: "order_id"}},
		DoNothing: true,
	}).Create(stop)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected != 1 {
		return false, nil
	}
	err := r.db.Model(&models.DeliveryRoute{}).
		Where("id = ? AND tenant_id = ?", stop.RouteID, stop.TenantID).
		Update("version", gorm.Expr("version + 1")).Error
	return err == nil, err
}

// RemoveStopsExcept 移除不在 keep 中的成员
func (r *GormDeliveryRouteRepository) RemoveStopsExcept(tenantID, routeID uint, keep []uint) error {
	query := r.db.Where("tenant_id = ? AND route_id = ?", tenantID, routeID)
	if len(keep) > 0 {
		query = query.Where("order_id NOT IN ?", keep)
	}
	return query.Delete(&models.DeliveryRouteStop{}).Error
}

// FindActiveStopOwner 查找订单所在的已出发路线（排除指定骑手）
func (r *GormDeliveryRouteRepository) FindActiveStopOwner(tenantID, orderID, excludeCourierID uint) (*models.DeliveryRoute, error) {
	var route models.DeliveryRoute
	err := r.db.Model(&models.DeliveryRoute{}).
		Joins("JOIN delivery_route_stops ON delivery_route_stops.route_id = delivery_routes.id").
		Where("delivery_routes.tenant_id = ? AND delivery_route_stops.order_id = ? AND delivery_routes.courier_id <> ? AND delivery_routes.phase IN ?",
			tenantID, orderID, excludeCourierID, []string{constants.RoutePhaseStarted, constants.RoutePhaseFinished}).
		Order("delivery_routes.id desc").
		First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &route, nil
}

// SetPhase 条件切换路线阶段
func (r *GormDeliveryRouteRepository) SetPhase(tenantID, id uint, from, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["phase"] = to
	updates["version"] = gorm.Expr("version + 1")
	result := r.db.Model(&models.DeliveryRoute{}).
		Where("id = ? AND tenant_id = ? AND phase = ?", id, tenantID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountMembersInStatus 统计路线上处于某状态的订单数
func (r *GormDeliveryRouteRepository) CountMembersInStatus(tenantID, routeID uint, status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("tenant_id = ? AND route_id = ? AND status = ?", tenantID, routeID, status).
		Count(&count).Error
	return count, err
}

