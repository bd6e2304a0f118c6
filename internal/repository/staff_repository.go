package repository

import (
	"errors"
	"time"

	"github.com/comanda-next/internal/models"

	"gorm.io/gorm"
)

// StaffRepository 员工数据访问接口
type StaffRepository interface {
	GetByUsername(tenantID uint, username string) (*models.Staff, error)
	GetByID(tenantID, id uint) (*models.Staff, error)
	List(tenantID uint) ([]models.Staff, error)
	Create(staff *models.Staff) error
	TouchLastLogin(id uint, at time.Time) error
	BumpTokenVersion(id uint) error
}

// GormStaffRepository GORM 实现
type GormStaffRepository struct {
	db *gorm.DB
}

// NewStaffRepository 创建员工仓库
func NewStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

// GetByUsername 根据账号获取员工
func (r *GormStaffRepository) GetByUsername(tenantID uint, username string) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.Where("tenant_id = ? AND username = ?", tenantID, username).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

// GetByID 获取租户内员工
func (r *GormStaffRepository) GetByID(tenantID, id uint) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

// List 员工列表
func (r *GormStaffRepository) List(tenantID uint) ([]models.Staff, error) {
	var staff []models.Staff
	if err := r.db.Where("tenant_id = ?", tenantID).Order("id asc").Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}

// Create 创建员工
func (r *GormStaffRepository) Create(staff *models.Staff) error {
	return r.db.Create(staff).Error
}

// TouchLastLogin 更新最后登录时间
func (r *GormStaffRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Staff{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// BumpTokenVersion 令牌版本加一，已签发的 JWT 全部失效
func (r *GormStaffRepository) BumpTokenVersion(id uint) error {
	return r.db.Model(&models.Staff{}).Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1)).Error
}
