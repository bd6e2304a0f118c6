package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/i18n"
	"github.com/comanda-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中提取限流维度，返回空串时按客户端 IP 计数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
	// FailOpen 计数失败时放行
	FailOpen bool
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// windowCounter 对 key 计数一次，返回窗口内累计次数与窗口剩余时间
type windowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// 首次计数时设置过期，返回 {count, ttl}
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

type redisCounter struct {
	client *redis.Client
}

func (r redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	values, err := fixedWindowScript.Run(ctx, r.client, []string{key}, int(window.Seconds())).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, redis.Nil
	}
	return values[0], time.Duration(values[1]) * time.Second, nil
}

// RateLimitMiddleware Redis 固定窗口限流；client 为 nil 时不限流
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if client == nil || !rule.enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return rateLimit(redisCounter{client: client}, rule, keyFunc)
}

func rateLimit(counter windowCounter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	window := time.Duration(rule.WindowSeconds) * time.Second
	messageKey := strings.TrimSpace(rule.MessageKey)
	if messageKey == "" {
		messageKey = "error.too_many_requests"
	}

	return func(c *gin.Context) {
		key := rateLimitKey(c, rule.Prefix, keyFunc)
		count, ttl, err := counter.Hit(c.Request.Context(), key, window)
		if err != nil {
			if rule.FailOpen {
				logger.Warnw("rate_limit_unavailable_pass", "key", key, "error", err)
				c.Next()
				return
			}
			logger.Errorw("rate_limit_unavailable_reject", "key", key, "error", err)
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.internal"))
			c.Abort()
			return
		}
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		retryAfter := int(ttl / time.Second)
		if retryAfter < 1 {
			retryAfter = max(rule.WindowSeconds, 1)
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), messageKey, retryAfter))
		c.Abort()
	}
}

func rateLimitKey(c *gin.Context, prefix string, keyFunc RateLimitKeyFunc) string {
	key := ""
	if keyFunc != nil {
		key = strings.TrimSpace(keyFunc(c))
	}
	if key == "" {
		key = c.ClientIP()
	}
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByTenantAndIP 门店 slug + IP
func KeyByTenantAndIP(c *gin.Context) string {
	tenant := strings.ToLower(strings.TrimSpace(c.Param("tenant")))
	if tenant == "" {
		return c.ClientIP()
	}
	return tenant + "|" + c.ClientIP()
}

// KeyByIPAndJSONField 请求体中的字段值 + IP，读取后还原请求体
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(peekJSONStringField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func peekJSONStringField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
