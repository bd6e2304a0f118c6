package authz

import (
	"fmt"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/logger"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

const roleStaffBase = "staff_base"

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:     roleStaffBase,
			Policies: []Policy{
				{Object: "/staff/me", Action: "GET"},
				{Object: "/staff/logout", Action: "POST"},
				{Object: "/staff/realtime", Action: "GET"},
				{Object: "/staff/tables", Action: "GET"},
				{Object: "/staff/tables/:id", Action: "GET"},
				{Object: "/staff/orders/queue", Action: "GET"},
				{Object: "/staff/orders/:id", Action: "GET"},
				{Object: "/staff/orders/:id/logs", Action: "GET"},
			},
		},
		{
			Role:     constants.StaffRoleWaiter,
			Inherits: []string{roleStaffBase},
			Policies: []Policy{
				{Object: "/staff/tables/:id/occupy", Action: "POST"},
				{Object: "/staff/tables/:id/release", Action: "POST"},
				{Object: "/staff/tables/:id/bill", Action: "GET"},
			},
		},
		{
			Role:     constants.StaffRoleKitchen,
			Inherits: []string{roleStaffBase},
			Policies: []Policy{
				{Object: "/staff/orders/:id/advance", Action: "POST"},
			},
		},
		{
			Role:     constants.StaffRoleCashier,
			Inherits: []string{roleStaffBase},
			Policies: []Policy{
				{Object: "/staff/tables/:id/bill", Action: "GET"},
				{Object: "/staff/tables/:id/close", Action: "POST"},
				{Object: "/staff/tables/:id/release", Action: "POST"},
				{Object: "/staff/orders/history", Action: "GET"},
				{Object: "/staff/orders/:id/total", Action: "PUT"},
				{Object: "/staff/orders/:id/advance", Action: "POST"},
			},
		},
		{
			Role:     constants.StaffRoleCourier,
			Inherits: []string{roleStaffBase},
			Policies: []Policy{
				{Object: "/staff/routes/*", Action: "*"},
			},
		},
		{
			Role:     constants.StaffRoleManager,
			Inherits: []string{constants.StaffRoleWaiter, constants.StaffRoleCashier, constants.StaffRoleKitchen},
			Policies: []Policy{
				{Object: "/staff/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色、继承关系与策略，重复执行不产生新规则
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	added := 0
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		if ok, err := s.registerRole(role); err != nil {
			return err
		} else if ok {
			added++
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if ok, err := s.inherit(role, parentRole); err != nil {
				return err
			} else if ok {
				added++
			}
		}
		for _, policy := range seed.Policies {
			ok, err := s.grant(role, policy)
			if err != nil {
				return fmt.Errorf("builtin role %s: %w", seed.Role, err)
			}
			if ok {
				added++
			}
		}
	}
	if added > 0 {
		logger.Infow("authz_builtin_roles_bootstrapped", "rules_added", added)
	}
	return nil
}
