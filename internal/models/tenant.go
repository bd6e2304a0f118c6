package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant 租户（门店）表
type Tenant struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                     // 主键
	Slug      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`        // 公开访问标识
	Name      string         `gorm:"type:varchar(120);not null" json:"name"`                   // 门店名称
	Status    string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // 状态
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}
