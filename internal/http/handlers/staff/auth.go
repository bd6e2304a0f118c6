package staff

import (
	"time"

	"github.com/comanda-next/internal/constants"
	handlershared "github.com/comanda-next/internal/http/handlers/shared"
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Tenant         string                       `json:"tenant" binding:"required"`
	Username       string                       `json:"username" binding:"required"`
	Password       string                       `json:"password" binding:"required"`
	CaptchaPayload service.CaptchaVerifyPayload `json:"captcha_payload"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	Staff     map[string]interface{} `json:"staff"`
	ExpiresAt string                 `json:"expires_at"`
}

// Login 员工登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if !handlershared.PassCaptcha(c, h.CaptchaService, constants.CaptchaSceneStaffLogin, req.CaptchaPayload) {
		return
	}

	staff, token, expiresAt, err := h.AuthService.Login(req.Tenant, req.Username, req.Password)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, handlershared.AuthErrorRules, response.CodeInternal, "error.internal")
		return
	}
	if err := h.AuthzService.AssignStaffRole(staff.ID, staff.Role); err != nil {
		requestLog(c).Warnw("staff_role_sync_failed", "staff_id", staff.ID, "role", staff.Role, "error", err)
	}

	requestLog(c).Infow("staff_login", "tenant_id", staff.TenantID, "staff_id", staff.ID, "role", staff.Role)
	response.Success(c, LoginResponse{
		Token: token,
		Staff: map[string]interface{}{
			"id":           staff.ID,
			"tenant_id":    staff.TenantID,
			"username":     staff.Username,
			"display_name": staff.DisplayName,
			"role":         staff.Role,
		},
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Logout 退出登录，旧令牌随令牌版本递增一并失效
func (h *Handler) Logout(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	if err := h.AuthService.Logout(c.Request.Context(), identity.StaffID); err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	requestLog(c).Infow("staff_logout", "staff_id", identity.StaffID)
	response.Success(c, nil)
}

// Me 当前员工信息与生效权限
func (h *Handler) Me(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	staff, err := h.StaffRepo.GetByID(identity.TenantID, identity.StaffID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if staff == nil {
		respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return
	}
	policies, err := h.AuthzService.StaffPolicies(staff.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"staff":       staff,
		"permissions": policies,
	})
}
