package models

import (
	"time"

	"gorm.io/gorm"
)

// Table 桌台表（实体桌或挂账台）
type Table struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                                                        // 主键
	TenantID          uint           `gorm:"not null;uniqueIndex:idx_table_label,where:deleted_at IS NULL" json:"tenant_id"`              // 租户ID
	Kind              string         `gorm:"type:varchar(20);not null;default:'table'" json:"kind"`                                       // 类型（table/tab）
	Label             string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_table_label,where:deleted_at IS NULL" json:"label"` // 显示名称
	Capacity          *int           `json:"capacity,omitempty"`                                                                          // 座位数
	Section           string         `gorm:"type:varchar(64);index" json:"section,omitempty"`                                             // 区域
	Status            string         `gorm:"type:varchar(20);not null;default:'free';index" json:"status"`                                // 状态（free/occupied）
	OccupantContactID *uint          `gorm:"index" json:"occupant_contact_id,omitempty"`                                                  // 当前占用联系人
	ActiveTicketID    *uint          `gorm:"index" json:"active_ticket_id,omitempty"`                                                     // 当前关联工单
	OccupiedAt        *time.Time     `json:"occupied_at,omitempty"`                                                                       // 占用开始时间
	MenuFormID        *uint          `gorm:"index" json:"menu_form_id,omitempty"`                                                         // 扫码后打开的菜单表单
	Version           uint64         `gorm:"not null;default:0" json:"version"`                                                           // 版本号（每次变更 +1）
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                                                     // 创建时间
	UpdatedAt         time.Time      `json:"updated_at"`                                                                                  // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                                              // 软删除时间

	MenuForm *MenuForm `gorm:"foreignKey:MenuFormID" json:"menu_form,omitempty"` // 菜单表单
}

// TableName 指定表名
func (Table) TableName() string {
	return "dining_tables"
}

// TableSession 桌台占用历史（释放时写入）
type TableSession struct {
	ID         uint       `gorm:"primarykey" json:"id"`                // 主键
	TenantID   uint       `gorm:"not null;index" json:"tenant_id"`     // 租户ID
	TableID    uint       `gorm:"not null;index" json:"table_id"`      // 桌台ID
	ContactID  *uint      `gorm:"index" json:"contact_id,omitempty"`   // 占用联系人
	TicketID   *uint      `json:"ticket_id,omitempty"`                 // 关联工单
	OccupiedAt *time.Time `json:"occupied_at,omitempty"`               // 占用开始时间
	ReleasedAt time.Time  `gorm:"index" json:"released_at"`            // 释放时间
	ReleasedBy string     `gorm:"type:varchar(64)" json:"released_by"` // 操作人
}

// TableName 指定表名
func (TableSession) TableName() string {
	return "table_sessions"
}
