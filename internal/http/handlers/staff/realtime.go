package staff

import (
	"strings"

	"github.com/comanda-next/internal/realtime"

	"github.com/gin-gonic/gin"
)

// StreamEvents 员工端实时事件推送，可按 resource 查询参数过滤资源类型
func (h *Handler) StreamEvents(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	var filter func(realtime.Event) bool
	if raw := strings.TrimSpace(c.Query("resource")); raw != "" {
		allowed := make(map[string]struct{})
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				allowed[item] = struct{}{}
			}
		}
		filter = func(event realtime.Event) bool {
			_, ok := allowed[event.ResourceType]
			return ok
		}
	}
	realtime.ServeWS(c, h.Hub, identity.TenantID, filter)
}
