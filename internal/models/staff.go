package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff 员工表
type Staff struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                                            // 主键
	TenantID     uint           `gorm:"not null;uniqueIndex:idx_staff_tenant_username" json:"tenant_id"`                 // 租户ID
	Username     string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_staff_tenant_username" json:"username"` // 登录账号
	DisplayName  string         `gorm:"type:varchar(120)" json:"display_name"`                                           // 显示名称
	PasswordHash string         `gorm:"not null" json:"-"`                                                               // 密码哈希
	Role         string         `gorm:"type:varchar(20);not null;index" json:"role"`                                     // 角色
	Status       string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"`                        // 状态
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"`                                                     // Token 版本（用于全量失效）
	LastLoginAt  *time.Time     `json:"last_login_at"`                                                                   // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                                         // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                                                      // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                                                  // 软删除时间
}

// TableName 指定表名
func (Staff) TableName() string {
	return "staff"
}
