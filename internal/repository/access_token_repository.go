package repository

import (
	"errors"
	"time"

	"github.com/comanda-next/internal/models"

	"gorm.io/gorm"
)

// AccessTokenRepository 访问令牌数据访问接口
type AccessTokenRepository interface {
	Create(token *models.AccessToken) error
	FindUsable(tenantID uint, tokenHash, kind string, now time.Time) (*models.AccessToken, error)
	GetByID(tenantID, id uint) (*models.AccessToken, error)
	ListByResource(tenantID uint, kind string, resourceID uint) ([]models.AccessToken, error)
	Revoke(tenantID, id uint, at time.Time) (bool, error)
	DeleteStale(before time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormAccessTokenRepository
}

// GormAccessTokenRepository GORM 实现
type GormAccessTokenRepository struct {
	db *gorm.DB
}

// NewAccessTokenRepository 创建访问令牌仓库
func NewAccessTokenRepository(db *gorm.DB) *GormAccessTokenRepository {
	return &GormAccessTokenRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAccessTokenRepository) WithTx(tx *gorm.DB) *GormAccessTokenRepository {
	if tx == nil {
		return r
	}
	return &GormAccessTokenRepository{db: tx}
}

// Create 创建令牌
func (r *GormAccessTokenRepository) Create(token *models.AccessToken) error {
	return r.db.Create(token).Error
}

// FindUsable 按摘要查找未吊销、未过期的令牌，范围限定在租户与类型内
func (r *GormAccessTokenRepository) FindUsable(tenantID uint, tokenHash, kind string, now time.Time) (*models.AccessToken, error) {
	var token models.AccessToken
	err := r.db.Where("tenant_id = ? AND token_hash = ? AND kind = ? AND revoked_at IS NULL", tenantID, tokenHash, kind).
		Where("expires_at IS NULL OR expires_at > ?", now).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// GetByID 获取租户内令牌
func (r *GormAccessTokenRepository) GetByID(tenantID, id uint) (*models.AccessToken, error) {
	var token models.AccessToken
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// ListByResource 资源下的令牌
func (r *GormAccessTokenRepository) ListByResource(tenantID uint, kind string, resourceID uint) ([]models.AccessToken, error) {
	var tokens []models.AccessToken
	if err := r.db.Where("tenant_id = ? AND kind = ? AND resource_id = ?", tenantID, kind, resourceID).
		Order("id desc").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// Revoke 吊销令牌（已吊销的不重复写入）
func (r *GormAccessTokenRepository) Revoke(tenantID, id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.AccessToken{}).
		Where("id = ? AND tenant_id = ? AND revoked_at IS NULL", id, tenantID).
		Update("revoked_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteStale 清理 before 之前已过期或已吊销的令牌，跨租户执行
func (r *GormAccessTokenRepository) DeleteStale(before time.Time) (int64, error) {
	result := r.db.Where("(expires_at IS NOT NULL AND expires_at < ?) OR (revoked_at IS NOT NULL AND revoked_at < ?)", before, before).
		Delete(&models.AccessToken{})
	return result.RowsAffected, result.Error
}
