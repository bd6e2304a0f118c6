package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MenuForm 菜单表单（公开下单入口，按 slug 访问）
type MenuForm struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                                        // 主键
	TenantID      uint           `gorm:"not null;uniqueIndex:idx_menu_form_tenant_slug" json:"tenant_id"`             // 租户ID
	Slug          string         `gorm:"type:varchar(80);not null;uniqueIndex:idx_menu_form_tenant_slug" json:"slug"` // 访问标识
	Name          string         `gorm:"type:varchar(120);not null" json:"name"`                                      // 名称
	DefaultOrigin string         `gorm:"type:varchar(20);not null;default:'counter'" json:"default_origin"`           // 默认订单来源（counter/delivery）
	Schema        datatypes.JSON `gorm:"type:json" json:"schema,omitempty"`                                           // 表单结构
	IsActive      bool           `gorm:"not null;default:true;index" json:"is_active"`                                // 是否启用
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                                     // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                                  // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                                              // 软删除时间
}

// TableName 指定表名
func (MenuForm) TableName() string {
	return "menu_forms"
}
