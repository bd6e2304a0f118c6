package public

import "github.com/comanda-next/internal/provider"

// Handler 公开接口处理器入口
// 说明：该处理器用于顾客扫码点单、订单追踪等免登录 API，权限来自访问令牌。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
