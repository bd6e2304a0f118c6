package shared

import (
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PassCaptcha 校验场景验证码，失败时已写入错误响应；未装配验证码服务视为通过
func PassCaptcha(c *gin.Context, captcha *service.CaptchaService, scene string, payload service.CaptchaVerifyPayload) bool {
	if captcha == nil {
		return true
	}
	if err := captcha.Verify(scene, payload); err != nil {
		RespondWithMappedError(c, err, AuthErrorRules, response.CodeBadRequest, "error.captcha_invalid")
		return false
	}
	return true
}
