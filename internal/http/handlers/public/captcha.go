package public

import (
	handlershared "github.com/comanda-next/internal/http/handlers/shared"
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetImageCaptcha 下发一张图片验证码，答案只存服务端
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondError(c, response.CodeInternal, "error.captcha_config_invalid", service.ErrCaptchaConfig)
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		handlershared.RespondWithMappedError(c, err, handlershared.AuthErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, challenge)
}
