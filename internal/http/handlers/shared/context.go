package shared

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/comanda-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入上下文的键
const (
	ContextStaffID   = "staff_id"
	ContextTenantID  = "tenant_id"
	ContextStaffRole = "staff_role"
	ContextUsername  = "username"
)

// StaffIdentity 当前请求的员工身份
type StaffIdentity struct {
	StaffID  uint
	TenantID uint
	Role     string
	Username string
}

// Actor 写入状态日志与令牌签发记录的操作人
func (s StaffIdentity) Actor() string {
	if s.Username == "" {
		return "staff:" + strconv.FormatUint(uint64(s.StaffID), 10)
	}
	return fmt.Sprintf("%s:%s", s.Role, s.Username)
}

// CurrentStaff 读取员工身份；缺失时写 401，类型不符时写 500
func CurrentStaff(c *gin.Context) (StaffIdentity, bool) {
	staffID, ok := contextID(c, ContextStaffID, "error.staff_id_invalid")
	if !ok {
		return StaffIdentity{}, false
	}
	tenantID, ok := contextID(c, ContextTenantID, "error.unauthorized")
	if !ok {
		return StaffIdentity{}, false
	}
	return StaffIdentity{
		StaffID:  staffID,
		TenantID: tenantID,
		Role:     c.GetString(ContextStaffRole),
		Username: c.GetString(ContextUsername),
	}, true
}

func contextID(c *gin.Context, key, zeroKey string) (uint, bool) {
	raw, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	id, isUint := raw.(uint)
	switch {
	case !isUint:
		RespondError(c, response.CodeInternal, "error.context_type_invalid", fmt.Errorf("context %s holds %T", key, raw))
		return 0, false
	case id == 0:
		RespondError(c, response.CodeUnauthorized, zeroKey, nil)
		return 0, false
	}
	return id, true
}

// ParseUintParam 路径参数须为正整数，否则写 400
func ParseUintParam(c *gin.Context, name, invalidKey string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 0)
	if err == nil && id > 0 {
		return uint(id), true
	}
	RespondError(c, response.CodeBadRequest, invalidKey, nil)
	return 0, false
}
