package staff

import "github.com/comanda-next/internal/provider"

// Handler 员工端接口处理器入口
// 说明：该处理器仅用于登录后的员工 API，租户取自员工 JWT。
type Handler struct {
	*provider.Container
}

// New 创建员工端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
