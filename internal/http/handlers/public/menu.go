package public

import (
	"strconv"
	"strings"

	"github.com/comanda-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetMenu 获取门店启用中的菜单表单
func (h *Handler) GetMenu(c *gin.Context) {
	tenant, ok := h.resolveTenant(c)
	if !ok {
		return
	}
	form, err := h.OrderService.GetActiveMenu(tenant.ID, strings.TrimSpace(c.Param("slug")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"tenant": gin.H{"slug": tenant.Slug, "name": tenant.Name},
		"menu":   form,
	})
}

// GetTableMenu 扫描桌台二维码后解析桌台与绑定菜单
//
// 携带的令牌无效、过期、跨租户或不属于该桌台时一律返回 404；
// 未携带令牌时按 order.require_table_token 决定是否放行。
func (h *Handler) GetTableMenu(c *gin.Context) {
	tenant, ok := h.resolveTenant(c)
	if !ok {
		return
	}
	tableID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || tableID == 0 {
		respondError(c, response.CodeBadRequest, "error.table_id_invalid", nil)
		return
	}
	menu, err := h.OrderService.ResolveTableMenu(c.Request.Context(), tenant.ID, uint(tableID), accessToken(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, menu)
}
