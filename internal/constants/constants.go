package constants

// 桌台类型常量
const (
	TableKindTable = "table" // 实体桌台
	TableKindTab   = "tab"   // 挂账单/虚拟台
)

// 桌台状态常量
const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
)

// 订单状态常量（按流水线顺序）
const (
	OrderStatusNew            = "new"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// 订单来源常量
const (
	OrderOriginTable    = "table"
	OrderOriginCounter  = "counter"
	OrderOriginDelivery = "delivery"
)

// 配送路线阶段常量
const (
	RoutePhaseCollecting = "collecting"
	RoutePhaseStarted    = "started"
	RoutePhaseFinished   = "finished"
)

// 访问令牌类型常量
const (
	TokenKindTable    = "table"
	TokenKindDelivery = "delivery"
)

// 访问令牌格式
const (
	TokenMinLength = 16
	TokenMaxLength = 128
	TokenRawBytes  = 24
)

// 员工角色常量
const (
	StaffRoleManager = "manager"
	StaffRoleWaiter  = "waiter"
	StaffRoleKitchen = "kitchen"
	StaffRoleCashier = "cashier"
	StaffRoleCourier = "courier"
)

// 员工/租户状态常量
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// 工单状态常量
const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// 下单时的占台结果
const (
	OccupancyOccupied        = "occupied"
	OccupancyAlreadyOccupied = "already_occupied"
	OccupancySkipped         = "skipped"
	OccupancyFailed          = "failed"
)

// 实时事件资源类型
const (
	ResourceTable = "table"
	ResourceOrder = "order"
	ResourceRoute = "route"
)

// 实时事件动作
const (
	EventActionCreated       = "created"
	EventActionUpdated       = "updated"
	EventActionDeleted       = "deleted"
	EventActionOccupied      = "occupied"
	EventActionReleased      = "released"
	EventActionStatusChanged = "statusChanged"
	EventActionStarted       = "started"
	EventActionFinished      = "finished"
)

// 批量建台上限
const (
	TableBulkMinCount = 1
	TableBulkMaxCount = 50
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 验证码校验场景常量
const (
	CaptchaSceneStaffLogin  = "staff_login"
	CaptchaScenePublicOrder = "public_order"
)

// 队列常量
const (
	QueueDefault                = "default"
	QueueCritical               = "critical"
	TaskOrderResponderNotify    = "order:responder_notify"
	TaskOrderConfirmTimeout     = "order:confirm_timeout"
	TaskOrderConfirmTimeoutUniq = "order:confirm_timeout:%d"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "cn"
)

// 系统操作人标识
const (
	ActorSystem = "system"
	ActorPublic = "public"
)
