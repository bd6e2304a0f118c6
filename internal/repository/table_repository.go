package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"

	"gorm.io/gorm"
)

// IsDuplicateKey 写入违反唯一索引
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}

// TableRepository 桌台数据访问接口
type TableRepository interface {
	CreateBatch(tables []models.Table) error
	GetByID(tenantID, id uint) (*models.Table, error)
	List(filter TableListFilter) ([]models.Table, error)
	ExistingLabels(tenantID uint, labels []string) ([]string, error)
	MarkOccupied(tenantID, id uint, contactID uint, ticketID *uint, at time.Time) (bool, error)
	MarkFree(tenantID, id uint, expectedVersion uint64) (bool, error)
	DeleteIfFree(tenantID, id uint) (bool, error)
	UpdateAttributes(tenantID, id uint, updates map[string]interface{}) error
	CreateSession(session *models.TableSession) error
	WithTx(tx *gorm.DB) *GormTableRepository
}

// GormTableRepository GORM 实现
type GormTableRepository struct {
	db *gorm.DB
}

// NewTableRepository 创建桌台仓库
func NewTableRepository(db *gorm.DB) *GormTableRepository {
	return &GormTableRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTableRepository) WithTx(tx *gorm.DB) *GormTableRepository {
	if tx == nil {
		return r
	}
	return &GormTableRepository{db: tx}
}

// CreateBatch 批量创建桌台
func (r *GormTableRepository) CreateBatch(tables []models.Table) error {
	if len(tables) == 0 {
		return nil
	}
	return r.db.Create(&tables).Error
}

// GetByID 获取租户内桌台
func (r *GormTableRepository) GetByID(tenantID, id uint) (*models.Table, error) {
	var table models.Table
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

// List 桌台列表
func (r *GormTableRepository) List(filter TableListFilter) ([]models.Table, error) {
	var tables []models.Table
	query := r.db.Model(&models.Table{}).Where("tenant_id = ?", filter.TenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Section != "" {
		query = query.Where("section = ?", filter.Section)
	}
	if err := query.Order("id asc").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// ExistingLabels 返回租户内已被未删除桌台使用的名称
func (r *GormTableRepository) ExistingLabels(tenantID uint, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	var existing []string
	if err := r.db.Model(&models.Table{}).
		Where("tenant_id = ? AND label IN ?", tenantID, labels).
		Pluck("label", &existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// MarkOccupied 条件更新：仅当桌台空闲时占用，返回是否命中
func (r *GormTableRepository) MarkOccupied(tenantID, id uint, contactID uint, ticketID *uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.Table{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, constants.TableStatusFree).
		Updates(map[string]interface{}{
			"status":              constants.TableStatusOccupied,
			"occupant_contact_id": contactID,
			"active_ticket_id":    ticketID,
			"occupied_at":         at,
			"version":             gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkFree 条件更新：仅当桌台占用且版本未变时释放，返回是否命中
func (r *GormTableRepository) MarkFree(tenantID, id uint, expectedVersion uint64) (bool, error) {
	result := r.db.Model(&models.Table{}).
		Where("id = ? AND tenant_id = ? AND status = ? AND version = ?", id, tenantID, constants.TableStatusOccupied, expectedVersion).
		Updates(map[string]interface{}{
			"status":              constants.TableStatusFree,
			"occupant_contact_id": nil,
			"active_ticket_id":    nil,
			"occupied_at":         nil,
			"version":             gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteIfFree 条件软删除：占用中的桌台不会被删除
func (r *GormTableRepository) DeleteIfFree(tenantID, id uint) (bool, error) {
	result := r.db.Model(&models.Table{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, constants.TableStatusFree).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateAttributes 更新非状态字段
func (r *GormTableRepository) UpdateAttributes(tenantID, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	updates["version"] = gorm.Expr("version + 1")
	return r.db.Model(&models.Table{}).Where("id = ? AND tenant_id = ?", id, tenantID).Updates(updates).Error
}

// CreateSession 写入占用历史
func (r *GormTableRepository) CreateSession(session *models.TableSession) error {
	if session == nil {
		return nil
	}
	return r.db.Create(session).Error
}
