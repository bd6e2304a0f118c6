package models

import "time"

// DeliveryRoute 配送路线（一个骑手一次出车）
type DeliveryRoute struct {
	ID         uint       `gorm:"primarykey" json:"id"`                         // 主键
	TenantID   uint       `gorm:"not null;index" json:"tenant_id"`              // 租户ID
	CourierID  uint       `gorm:"not null;index" json:"courier_id"`             // 骑手（员工ID）
	Phase      string     `gorm:"type:varchar(20);not null;index" json:"phase"` // 阶段（collecting/started/finished）
	StartedAt  *time.Time `json:"started_at,omitempty"`                         // 出发时间
	FinishedAt *time.Time `json:"finished_at,omitempty"`                        // 完成时间
	Version    uint64     `gorm:"not null;default:0" json:"version"`            // 版本号
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt  time.Time  `json:"updated_at"`                                   // 更新时间

	Stops []DeliveryRouteStop `gorm:"foreignKey:RouteID" json:"stops,omitempty"` // 路线成员
}

// TableName 指定表名
func (DeliveryRoute) TableName() string {
	return "delivery_routes"
}

// OrderIDs 返回成员订单ID（按加入顺序）
func (r *DeliveryRoute) OrderIDs() []uint {
	if r == nil {
		return nil
	}
	ids := make([]uint, 0, len(r.Stops))
	for _, stop := range r.Stops {
		ids = append(ids, stop.OrderID)
	}
	return ids
}

// DeliveryRouteStop 路线成员订单
type DeliveryRouteStop struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                            // 主键
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`                                 // 租户ID
	RouteID   uint      `gorm:"not null;uniqueIndex:idx_route_stop_order" json:"route_id"`       // 路线ID
	OrderID   uint      `gorm:"not null;uniqueIndex:idx_route_stop_order;index" json:"order_id"` // 订单ID
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                         // 加入时间
}

// TableName 指定表名
func (DeliveryRouteStop) TableName() string {
	return "delivery_route_stops"
}
