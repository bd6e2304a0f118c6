package models

import "time"

// AccessToken 公开访问令牌（二维码中携带，库中只存摘要）
type AccessToken struct {
	ID         uint       `gorm:"primarykey" json:"id"`                           // 主键
	TenantID   uint       `gorm:"not null;index" json:"tenant_id"`                // 租户ID
	Kind       string     `gorm:"type:varchar(20);not null;index" json:"kind"`    // 类型（table/delivery）
	ResourceID uint       `gorm:"not null;index" json:"resource_id"`              // 目标资源ID
	TokenHash  string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"` // 令牌摘要
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"`              // 过期时间
	RevokedAt  *time.Time `gorm:"index" json:"revoked_at,omitempty"`              // 吊销时间
	IssuedBy   string     `gorm:"type:varchar(64)" json:"issued_by,omitempty"`    // 签发人
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                        // 创建时间
}

// TableName 指定表名
func (AccessToken) TableName() string {
	return "access_tokens"
}

// IsUsable 令牌是否仍可用
func (t *AccessToken) IsUsable(now time.Time) bool {
	if t == nil || t.RevokedAt != nil {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}
