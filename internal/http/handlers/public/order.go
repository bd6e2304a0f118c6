package public

import (
	"strings"

	"github.com/comanda-next/internal/constants"
	handlershared "github.com/comanda-next/internal/http/handlers/shared"
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/realtime"
	"github.com/comanda-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmitOrderRequest 公开下单请求
type SubmitOrderRequest struct {
	FormSlug       string                       `json:"form_slug"`
	Responder      service.ResponderInput       `json:"responder"`
	Answers        map[string]interface{}       `json:"answers"`
	Items          []service.LineItemInput      `json:"items"`
	Metadata       map[string]interface{}       `json:"metadata"`
	TableToken     string                       `json:"table_token"`
	CaptchaPayload service.CaptchaVerifyPayload `json:"captcha_payload"`
}

// SubmitOrder 顾客提交订单，菜单 slug 以路径为准
func (h *Handler) SubmitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if !handlershared.PassCaptcha(c, h.CaptchaService, constants.CaptchaScenePublicOrder, req.CaptchaPayload) {
		return
	}

	formSlug := strings.TrimSpace(c.Param("slug"))
	if formSlug == "" {
		formSlug = strings.TrimSpace(req.FormSlug)
	}
	if formSlug == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	tableToken := req.TableToken
	if tableToken == "" {
		tableToken = accessToken(c)
	}
	result, err := h.OrderService.Submit(c.Request.Context(), service.SubmitOrderInput{
		TenantSlug: c.Param("tenant"),
		FormSlug:   formSlug,
		Responder:  req.Responder,
		Answers:    req.Answers,
		Items:      req.Items,
		Metadata:   req.Metadata,
		TableToken: tableToken,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("public_order_submitted",
		"tenant_id", result.Order.TenantID,
		"order_id", result.Order.ID,
		"protocol", result.Order.Protocol,
		"origin", result.Order.Origin,
		"occupancy", result.Occupancy,
	)
	response.Success(c, result)
}

// TrackOrder 通过配送令牌查询订单
func (h *Handler) TrackOrder(c *gin.Context) {
	tenant, ok := h.resolveTenant(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetByToken(c.Request.Context(), tenant.ID, accessToken(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// StreamOrder 通过配送令牌订阅单个订单的实时变更
func (h *Handler) StreamOrder(c *gin.Context) {
	tenant, ok := h.resolveTenant(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetByToken(c.Request.Context(), tenant.ID, accessToken(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	orderID := order.ID
	realtime.ServeWS(c, h.Hub, tenant.ID, func(event realtime.Event) bool {
		return event.ResourceType == constants.ResourceOrder && event.ResourceID == orderID
	})
}
