package public

import (
	"strings"

	handlershared "github.com/comanda-next/internal/http/handlers/shared"
	"github.com/comanda-next/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}

// resolveTenant 按路径中的门店标识解析租户，并写入上下文供日志使用
func (h *Handler) resolveTenant(c *gin.Context) (*models.Tenant, bool) {
	tenant, err := h.TenantService.ResolveActive(strings.TrimSpace(c.Param("tenant")))
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	c.Set(handlershared.ContextTenantID, tenant.ID)
	return tenant, true
}

// accessToken 读取访问令牌：查询参数 t/token 或 X-Access-Token 头
func accessToken(c *gin.Context) string {
	if v := strings.TrimSpace(c.Query("t")); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.Query("token")); v != "" {
		return v
	}
	return strings.TrimSpace(c.GetHeader("X-Access-Token"))
}
