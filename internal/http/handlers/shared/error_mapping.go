package shared

import (
	"errors"

	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/i18n"
	"github.com/comanda-next/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedHandlerError 定义业务错误到接口错误响应的映射关系。
type MappedHandlerError struct {
	Target error
	Code   int
	Key    string
}

// DomainErrorRules 各接口共用的业务错误分类映射
var DomainErrorRules = []MappedHandlerError{
	{Target: service.ErrInvalidTokenFormat, Code: response.CodeBadRequest, Key: "error.token_format_invalid"},
	{Target: service.ErrValidation, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},
	{Target: service.ErrConflict, Code: response.CodeConflict, Key: "error.conflict"},
	{Target: service.ErrInvalidTransition, Code: response.CodeUnprocessableEntity, Key: "error.invalid_transition"},
}

// AuthErrorRules 登录与验证码相关错误映射
var AuthErrorRules = []MappedHandlerError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.login_failed"},
	{Target: service.ErrStaffDisabled, Code: response.CodeUnauthorized, Key: "error.staff_disabled"},
	{Target: service.ErrTenantNotFound, Code: response.CodeNotFound, Key: "error.tenant_not_found"},
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Key: "error.captcha_required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Key: "error.captcha_invalid"},
	{Target: service.ErrCaptchaConfig, Code: response.CodeInternal, Key: "error.captcha_config_invalid"},
}

// RespondWithMappedError 命中映射规则时返回对应业务码，否则按兜底错误记录日志后返回。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		msg := i18n.T(i18n.ResolveLocale(c), rule.Key)
		var opErr *service.OperationError
		if errors.As(err, &opErr) {
			response.ErrorWithData(c, rule.Code, msg, operationErrorDetail(opErr))
			return
		}
		response.Error(c, rule.Code, msg)
		return
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// RespondServiceError 按通用业务分类返回错误
func RespondServiceError(c *gin.Context, err error) {
	RespondWithMappedError(c, err, DomainErrorRules, response.CodeInternal, "error.internal")
}

// operationErrorDetail 出错资源写入响应 data
func operationErrorDetail(opErr *service.OperationError) gin.H {
	detail := gin.H{}
	if opErr.Resource != "" {
		detail["resource"] = opErr.Resource
	}
	if opErr.ResourceID != 0 {
		detail["resource_id"] = opErr.ResourceID
	}
	if opErr.Reason != "" {
		detail["reason"] = opErr.Reason
	}
	return detail
}
