package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order 订单表
type Order struct {
	ID             uint              `gorm:"primarykey" json:"id"`                                    // 主键
	TenantID       uint              `gorm:"not null;index" json:"tenant_id"`                         // 租户ID
	Protocol       string            `gorm:"type:varchar(40);uniqueIndex;not null" json:"protocol"`   // 订单编号（人类可读）
	MenuFormID     *uint             `gorm:"index" json:"menu_form_id,omitempty"`                     // 下单表单
	Status         string            `gorm:"type:varchar(32);not null;index" json:"status"`           // 订单状态
	Origin         string            `gorm:"type:varchar(20);not null;index" json:"origin"`           // 来源（table/counter/delivery）
	TableID        *uint             `gorm:"index" json:"table_id,omitempty"`                         // 桌台ID（仅 table 来源）
	RouteID        *uint             `gorm:"index" json:"route_id,omitempty"`                         // 配送路线ID
	ResponderName  string            `gorm:"type:varchar(120)" json:"responder_name"`                 // 下单人姓名
	ResponderPhone string            `gorm:"type:varchar(40);index" json:"responder_phone,omitempty"` // 下单人电话
	ResponderEmail string            `gorm:"type:varchar(200)" json:"responder_email,omitempty"`      // 下单人邮箱
	Answers        datatypes.JSONMap `gorm:"type:json" json:"answers,omitempty"`                      // 表单回答
	Metadata       datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`                     // 附加信息
	TotalOverride  *Money            `gorm:"type:decimal(20,2)" json:"total_override,omitempty"`      // 人工改价
	TotalAmount    Money             `gorm:"-" json:"total"`                                          // 订单总额（不落库）
	Version        uint64            `gorm:"not null;default:0" json:"version"`                       // 版本号（每次变更 +1）
	SubmittedAt    time.Time         `gorm:"not null;index" json:"submitted_at"`                      // 提交时间
	CreatedAt      time.Time         `json:"created_at"`                                              // 创建时间
	UpdatedAt      time.Time         `json:"updated_at"`                                              // 更新时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// Total 返回订单总额：有人工改价时取改价，否则为各项数量×单价之和
func (o *Order) Total() Money {
	if o == nil {
		return Money{}
	}
	if o.TotalOverride != nil {
		return NewMoneyFromDecimal(o.TotalOverride.Decimal)
	}
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal().Decimal)
	}
	return NewMoneyFromDecimal(sum)
}

// FillTotal 计算并写入 TotalAmount
func (o *Order) FillTotal() {
	if o == nil {
		return
	}
	o.TotalAmount = o.Total()
}

// OrderItem 订单项表
type OrderItem struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                    // 主键
	OrderID    uint      `gorm:"index;not null" json:"order_id"`                          // 订单ID
	ProductRef string    `gorm:"type:varchar(120);not null" json:"product_ref"`           // 商品引用
	Quantity   int       `gorm:"not null" json:"quantity"`                                // 数量
	UnitValue  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_value"` // 单价
	GroupTag   string    `gorm:"type:varchar(64)" json:"group_tag,omitempty"`             // 分组标签
	Position   int       `gorm:"not null;default:0" json:"position"`                      // 原始顺序
	CreatedAt  time.Time `json:"created_at"`                                              // 创建时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal 数量×单价
func (i OrderItem) Subtotal() Money {
	return NewMoneyFromDecimal(i.UnitValue.Decimal.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// OrderStatusLog 订单状态流转记录
type OrderStatusLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`                         // 主键
	TenantID   uint      `gorm:"not null;index" json:"tenant_id"`              // 租户ID
	OrderID    uint      `gorm:"not null;index" json:"order_id"`               // 订单ID
	FromStatus string    `gorm:"type:varchar(32);not null" json:"from_status"` // 原状态
	ToStatus   string    `gorm:"type:varchar(32);not null" json:"to_status"`   // 新状态
	Actor      string    `gorm:"type:varchar(64)" json:"actor"`                // 操作人
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                      // 变更时间
}

// TableName 指定表名
func (OrderStatusLog) TableName() string {
	return "order_status_logs"
}
