package repository

import "time"

// TableListFilter 桌台列表过滤条件
type TableListFilter struct {
	TenantID uint
	Status   string
	Kind     string
	Section  string
}

// OrderHistoryFilter 订单历史查询条件
type OrderHistoryFilter struct {
	Page          int
	PageSize      int
	TenantID      uint
	Status        string
	Origin        string
	TableID       uint
	Keyword       string // 匹配编号、下单人姓名/电话/邮箱
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
}

// BillFilter 账单汇总条件
type BillFilter struct {
	TenantID uint
	TableID  uint
	Since    time.Time
}
