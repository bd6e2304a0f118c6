package shared

import (
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/i18n"
	"github.com/comanda-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 与 tenant_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	kv := make([]interface{}, 0, 4)
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			kv = append(kv, "request_id", id)
		}
	}
	if tenantID, ok := c.Get(ContextTenantID); ok {
		if id, ok := tenantID.(uint); ok && id != 0 {
			kv = append(kv, "tenant_id", id)
		}
	}
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// RespondError 返回国际化错误响应；带原始错误时记录日志，原始错误不下发给客户端。
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	if err != nil {
		RequestLog(c).Errorw("handler_error", "code", code, "message_key", key, "error", err)
	}
	response.Error(c, code, msg)
}
