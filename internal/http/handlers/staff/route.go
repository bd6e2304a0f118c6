package staff

import (
	"github.com/comanda-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ScanRouteRequest 扫描配送单二维码请求
type ScanRouteRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// RouteOrdersRequest 开始/完成配送请求
type RouteOrdersRequest struct {
	OrderIDs []uint `json:"order_ids" binding:"required"`
}

// ScanRouteOrder 骑手扫码把订单加入待出发路线
func (h *Handler) ScanRouteOrder(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	var req ScanRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	route, err := h.DeliveryRouteService.Scan(c.Request.Context(), identity.TenantID, identity.StaffID, req.Payload)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, route)
}

// StartRoute 开始配送；任一订单不满足条件时整体失败
func (h *Handler) StartRoute(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	var req RouteOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	route, err := h.DeliveryRouteService.StartRoute(c.Request.Context(), identity.TenantID, identity.StaffID, req.OrderIDs, identity.Actor())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("delivery_route_started",
		"route_id", route.ID,
		"courier_id", identity.StaffID,
		"orders", len(req.OrderIDs),
	)
	response.Success(c, route)
}

// FinishRoute 标记订单已送达
func (h *Handler) FinishRoute(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	var req RouteOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	route, err := h.DeliveryRouteService.FinishRoute(c.Request.Context(), identity.TenantID, identity.StaffID, req.OrderIDs, identity.Actor())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, route)
}

// GetActiveRoute 当前骑手未完成的路线，没有时返回 404
func (h *Handler) GetActiveRoute(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	route, err := h.DeliveryRouteService.GetActiveRoute(identity.TenantID, identity.StaffID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, route)
}
