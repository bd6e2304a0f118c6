package staff

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/comanda-next/internal/http/handlers/shared"
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdvanceOrderRequest 推进订单状态请求
type AdvanceOrderRequest struct {
	Status string `json:"status" binding:"required"`
}

// TotalOverrideRequest 手工改价请求，total 为 null 时清除改价
type TotalOverrideRequest struct {
	Total *models.Money `json:"total"`
}

// ListOrderQueue 出餐队列：未完成订单按提交时间排列
func (h *Handler) ListOrderQueue(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	entries, err := h.OrderService.ListPending(identity.TenantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, entries)
}

// ListOrderHistory 订单历史分页查询
func (h *Handler) ListOrderHistory(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	page := handlershared.BindPageQuery(c)

	filter := repository.OrderHistoryFilter{
		Page:     page.Page,
		PageSize: page.PageSize,
		TenantID: identity.TenantID,
		Status:   strings.TrimSpace(c.Query("status")),
		Origin:   strings.TrimSpace(c.Query("origin")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	}
	if raw := strings.TrimSpace(c.Query("table_id")); raw != "" {
		tableID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.table_id_invalid", nil)
			return
		}
		filter.TableID = uint(tableID)
	}
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}
	filter.SubmittedFrom = from
	filter.SubmittedTo = to

	orders, total, err := h.OrderService.ListHistory(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page.Page, page.PageSize, total))
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "error.order_id_invalid")
	if !ok {
		return
	}
	order, err := h.OrderService.Get(identity.TenantID, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrderLogs 订单状态流转记录
func (h *Handler) GetOrderLogs(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "error.order_id_invalid")
	if !ok {
		return
	}
	logs, err := h.OrderService.ListStatusLogs(identity.TenantID, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, logs)
}

// AdvanceOrder 推进订单状态，只能前进或取消
func (h *Handler) AdvanceOrder(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "error.order_id_invalid")
	if !ok {
		return
	}
	var req AdvanceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.Advance(c.Request.Context(), identity.TenantID, orderID, req.Status, identity.Actor())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// SetOrderTotal 设置或清除订单改价
func (h *Handler) SetOrderTotal(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "error.order_id_invalid")
	if !ok {
		return
	}
	var req TotalOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.SetTotalOverride(c.Request.Context(), identity.TenantID, orderID, req.Total)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("order_total_override",
		"order_id", orderID,
		"staff_id", identity.StaffID,
		"cleared", req.Total == nil,
	)
	response.Success(c, order)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return nil, false
	}
	return &parsed, true
}
