package staff

import (
	"strings"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/i18n"
	"github.com/comanda-next/internal/repository"
	"github.com/comanda-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateTableRequest 新建桌台请求
type CreateTableRequest struct {
	Kind       string `json:"kind"`
	Label      string `json:"label" binding:"required"`
	Capacity   *int   `json:"capacity"`
	Section    string `json:"section"`
	MenuFormID *uint  `json:"menu_form_id"`
}

// CreateTablesBulkRequest 批量建台请求
type CreateTablesBulkRequest struct {
	Count      int    `json:"count" binding:"required"`
	Prefix     string `json:"prefix"`
	Suffix     string `json:"suffix"`
	StartIndex int    `json:"start_index"`
	Kind       string `json:"kind"`
	Capacity   *int   `json:"capacity"`
	Section    string `json:"section"`
	MenuFormID *uint  `json:"menu_form_id"`
}

// UpdateTableRequest 修改桌台请求
type UpdateTableRequest struct {
	Label      *string `json:"label"`
	Capacity   *int    `json:"capacity"`
	Section    *string `json:"section"`
	MenuFormID *uint   `json:"menu_form_id"`
}

// OccupyTableRequest 手动占台请求
type OccupyTableRequest struct {
	ContactID uint  `json:"contact_id" binding:"required"`
	TicketID  *uint `json:"ticket_id"`
}

// ListTables 桌台列表
func (h *Handler) ListTables(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tables, err := h.TableService.List(repository.TableListFilter{
		TenantID: identity.TenantID,
		Status:   strings.TrimSpace(c.Query("status")),
		Kind:     strings.TrimSpace(c.Query("kind")),
		Section:  strings.TrimSpace(c.Query("section")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tables)
}

// GetTable 桌台详情
func (h *Handler) GetTable(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	table, err := h.TableService.Get(identity.TenantID, tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, table)
}

// CreateTable 新建桌台
func (h *Handler) CreateTable(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	table, err := h.TableService.Create(c.Request.Context(), identity.TenantID, service.CreateTableInput{
		Kind:       req.Kind,
		Label:      req.Label,
		Capacity:   req.Capacity,
		Section:    req.Section,
		MenuFormID: req.MenuFormID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, table)
}

// CreateTablesBulk 批量建台，全部成功或全部失败
func (h *Handler) CreateTablesBulk(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	var req CreateTablesBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	tables, err := h.TableService.CreateBulk(c.Request.Context(), identity.TenantID, service.CreateTablesBulkInput{
		Count:      req.Count,
		Prefix:     req.Prefix,
		Suffix:     req.Suffix,
		StartIndex: req.StartIndex,
		Kind:       req.Kind,
		Capacity:   req.Capacity,
		Section:    req.Section,
		MenuFormID: req.MenuFormID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tables)
}

// UpdateTable 修改桌台属性
func (h *Handler) UpdateTable(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	var req UpdateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	table, err := h.TableService.Update(c.Request.Context(), identity.TenantID, tableID, service.UpdateTableInput{
		Label:      req.Label,
		Capacity:   req.Capacity,
		Section:    req.Section,
		MenuFormID: req.MenuFormID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, table)
}

// DeleteTable 删除空闲桌台
func (h *Handler) DeleteTable(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	if err := h.TableService.Delete(c.Request.Context(), identity.TenantID, tableID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"id": tableID, "deleted": true})
}

// OccupyTable 手动占台；已被占用时返回 409 与当前桌台
func (h *Handler) OccupyTable(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	var req OccupyTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	table, err := h.TableService.Occupy(c.Request.Context(), identity.TenantID, tableID, req.ContactID, req.TicketID)
	if err != nil {
		if service.IsConflict(err) && table != nil {
			response.ErrorWithData(c, response.CodeConflict, i18n.T(i18n.ResolveLocale(c), "error.conflict"), gin.H{"table": table})
			return
		}
		respondServiceError(c, err)
		return
	}
	response.Success(c, table)
}

// ReleaseTable 释放桌台，重复释放为幂等操作
func (h *Handler) ReleaseTable(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	table, err := h.TableService.Release(c.Request.Context(), identity.TenantID, tableID, identity.Actor())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, table)
}

// GetTableBill 当前会话账单；since 为空时取桌台占用时间
func (h *Handler) GetTableBill(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	var since *time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		since = &parsed
	}
	bill, err := h.BillService.CurrentSessionBill(identity.TenantID, tableID, since)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, bill)
}

// CloseTableSession 结账并释放桌台
func (h *Handler) CloseTableSession(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	bill, table, err := h.BillService.CloseSession(c.Request.Context(), identity.TenantID, tableID, identity.Actor())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("table_session_closed",
		"table_id", tableID,
		"total", bill.Total.String(),
		"orders", len(bill.Orders),
	)
	response.Success(c, gin.H{
		"bill":  bill,
		"table": table,
	})
}

// IssueTableTokenRequest 签发桌台令牌请求
type IssueTableTokenRequest struct {
	TTLHours int `json:"ttl_hours"`
}

// IssueTableToken 为桌台签发二维码令牌，原文只返回一次
func (h *Handler) IssueTableToken(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	var req IssueTableTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	if _, err := h.TableService.Get(identity.TenantID, tableID); err != nil {
		respondServiceError(c, err)
		return
	}
	issued, err := h.TokenService.Issue(identity.TenantID, constants.TokenKindTable, tableID, time.Duration(req.TTLHours)*time.Hour, identity.Actor())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, issued)
}

// ListTableTokens 桌台已签发的令牌（不含原文）
func (h *Handler) ListTableTokens(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "error.table_id_invalid")
	if !ok {
		return
	}
	tokens, err := h.TokenService.ListForResource(identity.TenantID, constants.TokenKindTable, tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tokens)
}

// RevokeToken 吊销令牌
func (h *Handler) RevokeToken(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		return
	}
	tokenID, ok := parseIDParam(c, "error.token_id_invalid")
	if !ok {
		return
	}
	if err := h.TokenService.Revoke(c.Request.Context(), identity.TenantID, tokenID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"id": tokenID, "revoked": true})
}
