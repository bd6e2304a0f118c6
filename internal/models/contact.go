package models

import "time"

// Contact 联系人（下单人/占台人）
type Contact struct {
	ID        uint      `gorm:"primarykey" json:"id"`                           // 主键
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`                // 租户ID
	Name      string    `gorm:"type:varchar(120)" json:"name"`                  // 姓名
	Phone     string    `gorm:"type:varchar(40);index" json:"phone,omitempty"`  // 电话
	Email     string    `gorm:"type:varchar(200);index" json:"email,omitempty"` // 邮箱
	CreatedAt time.Time `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                     // 更新时间
}

// TableName 指定表名
func (Contact) TableName() string {
	return "contacts"
}

// Ticket 会话工单
type Ticket struct {
	ID        uint       `gorm:"primarykey" json:"id"`                                   // 主键
	TenantID  uint       `gorm:"not null;index" json:"tenant_id"`                        // 租户ID
	ContactID uint       `gorm:"not null;index" json:"contact_id"`                       // 联系人ID
	Status    string     `gorm:"type:varchar(20);not null;default:'open'" json:"status"` // 状态（open/closed）
	Subject   string     `gorm:"type:varchar(200)" json:"subject,omitempty"`             // 主题
	ClosedAt  *time.Time `json:"closed_at,omitempty"`                                    // 关闭时间
	CreatedAt time.Time  `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt time.Time  `json:"updated_at"`                                             // 更新时间
}

// TableName 指定表名
func (Ticket) TableName() string {
	return "tickets"
}
