package repository

import (
	"errors"
	"strings"

	"github.com/comanda-next/internal/models"

	"gorm.io/gorm"
)

// MenuFormRepository 菜单表单数据访问接口
type MenuFormRepository interface {
	GetActiveBySlug(tenantID uint, slug string) (*models.MenuForm, error)
	GetByID(tenantID, id uint) (*models.MenuForm, error)
	Create(form *models.MenuForm) error
}

// GormMenuFormRepository GORM 实现
type GormMenuFormRepository struct {
	db *gorm.DB
}

// NewMenuFormRepository 创建菜单表单仓库
func NewMenuFormRepository(db *gorm.DB) *GormMenuFormRepository {
	return &GormMenuFormRepository{db: db}
}

// GetActiveBySlug 获取启用中的表单
func (r *GormMenuFormRepository) GetActiveBySlug(tenantID uint, slug string) (*models.MenuForm, error) {
	var form models.MenuForm
	err := r.db.Where("tenant_id = ? AND slug = ? AND is_active = ?", tenantID, strings.TrimSpace(slug), true).
		First(&form).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &form, nil
}

// GetByID 获取租户内表单
func (r *GormMenuFormRepository) GetByID(tenantID, id uint) (*models.MenuForm, error) {
	var form models.MenuForm
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&form).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &form, nil
}

// Create 创建表单
func (r *GormMenuFormRepository) Create(form *models.MenuForm) error {
	return r.db.Create(form).Error
}
