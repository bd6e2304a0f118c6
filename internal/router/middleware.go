package router

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/comanda-next/internal/authz"
	"github.com/comanda-next/internal/config"
	handlershared "github.com/comanda-next/internal/http/handlers/shared"
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/i18n"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{
		"Content-Type",
		"Authorization",
		"Accept-Language",
		"Cache-Control",
		"X-Requested-With",
		"X-Access-Token",
		requestIDHeader,
	}
)

// corsPolicy 启动时计算好的跨域响应头
type corsPolicy struct {
	origins     []string
	wildcard    bool
	credentials bool
	methods     string
	headers     string
	maxAge      string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{
		origins:     cfg.AllowedOrigins,
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(defaultCORSMethods, ", "),
		headers:     strings.Join(defaultCORSHeaders, ", "),
	}
	if len(p.origins) == 0 {
		p.origins = []string{"*"}
	}
	p.wildcard = slices.Contains(p.origins, "*")
	if len(cfg.AllowedMethods) > 0 {
		p.methods = strings.Join(cfg.AllowedMethods, ", ")
	}
	if len(cfg.AllowedHeaders) > 0 {
		p.headers = strings.Join(cfg.AllowedHeaders, ", ")
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin 通配且需携带凭证时回显请求来源，浏览器不接受 "*" 与凭证同时出现
func (p corsPolicy) allowOrigin(origin string) string {
	if p.wildcard {
		if p.credentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range p.origins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// CORSMiddleware 跨域中间件，预检请求直接返回 204
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		h := c.Writer.Header()
		if origin := policy.allowOrigin(c.GetHeader("Origin")); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if policy.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", policy.methods)
		h.Set("Access-Control-Allow-Headers", policy.headers)
		h.Set("Access-Control-Expose-Headers", requestIDHeader+", Retry-After")
		if policy.maxAge != "" {
			h.Set("Access-Control-Max-Age", policy.maxAge)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 沿用上游传入的 X-Request-ID，缺失时生成
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 每个请求一行访问日志；5xx 记 error，4xx 记 warn
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if tenantID := c.GetUint(handlershared.ContextTenantID); tenantID != 0 {
			kv = append(kv, "tenant_id", tenantID)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			sugar.Errorw("request", kv...)
		case status >= http.StatusBadRequest:
			sugar.Warnw("request", kv...)
		default:
			sugar.Infow("request", kv...)
		}
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// bearerToken 解析 "Bearer <token>"，scheme 不区分大小写
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// StaffJWTAuthMiddleware 员工令牌鉴权，通过后写入员工身份到上下文
func StaffJWTAuthMiddleware(secretKey string, authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		if authService == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "error.auth_header_missing")
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			abortUnauthorized(c, "error.auth_header_invalid")
			return
		}

		state, claims, err := authService.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrStaffDisabled):
			abortUnauthorized(c, "error.staff_disabled")
			return
		case errors.Is(err, service.ErrTokenRevoked):
			abortUnauthorized(c, "error.token_revoked")
			return
		case errors.Is(err, service.ErrTokenInvalid):
			abortUnauthorized(c, "error.token_invalid")
			return
		default:
			handlershared.RequestLog(c).Errorw("staff_auth_state_load_failed", "error", err)
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		c.Set(handlershared.ContextStaffID, state.StaffID)
		c.Set(handlershared.ContextTenantID, state.TenantID)
		c.Set(handlershared.ContextStaffRole, state.Role)
		c.Set(handlershared.ContextUsername, claims.Username)
		c.Next()
	}
}

// StaffRBACMiddleware 以路由模板和方法校验员工权限
func StaffRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		staffID := c.GetUint(handlershared.ContextStaffID)
		if authzService == nil || staffID == 0 {
			if authzService == nil {
				logger.Errorw("staff_rbac_service_unavailable")
			}
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if resource == "" {
			resource = c.Request.URL.Path
		}
		log := handlershared.RequestLog(c).With(
			"staff_id", staffID,
			"method", c.Request.Method,
			"resource", authz.NormalizeObject(resource),
		)

		allowed, err := authzService.EnforceStaff(staffID, resource, c.Request.Method)
		if err != nil {
			log.Errorw("staff_rbac_enforce_failed", "error", err)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			log.Warnw("staff_rbac_permission_denied", "role", c.GetString(handlershared.ContextStaffRole))
			response.Forbidden(c, i18n.T(i18n.ResolveLocale(c), "error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}
