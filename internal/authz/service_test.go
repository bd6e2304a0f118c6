package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceStaffWithCustomRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("host", "/api/v1/staff/tables/:id", "get"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.AssignStaffRole(1, "host"); err != nil {
		t.Fatalf("assign role failed: %v", err)
	}

	allow, err := svc.EnforceStaff(1, "/api/v1/staff/tables/:id", "GET")
	if err != nil || !allow {
		t.Fatalf("expected allow, got %v, %v", allow, err)
	}
	allow, err = svc.EnforceStaff(1, "/api/v1/staff/tables/:id", "DELETE")
	if err != nil || allow {
		t.Fatalf("expected deny, got %v, %v", allow, err)
	}
	allow, err = svc.EnforceStaff(2, "/api/v1/staff/tables/:id", "GET")
	if err != nil || allow {
		t.Fatalf("staff without role must be denied, got %v, %v", allow, err)
	}
}

func TestAssignStaffRoleReplacesPrevious(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	if err := svc.AssignStaffRole(2, "courier"); err != nil {
		t.Fatalf("assign courier failed: %v", err)
	}
	if role, err := svc.StaffRole(2); err != nil || role != "role:courier" {
		t.Fatalf("role want role:courier got %q, %v", role, err)
	}

	if err := svc.AssignStaffRole(2, "role:kitchen"); err != nil {
		t.Fatalf("assign kitchen failed: %v", err)
	}
	if role, err := svc.StaffRole(2); err != nil || role != "role:kitchen" {
		t.Fatalf("role want role:kitchen got %q, %v", role, err)
	}
	// 重复分配同一角色不报错
	if err := svc.AssignStaffRole(2, "kitchen"); err != nil {
		t.Fatalf("re-assign kitchen failed: %v", err)
	}

	allow, err := svc.EnforceStaff(2, "/staff/routes/start", "POST")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected courier permission removed")
	}
}

func TestNormalizeHelpers(t *testing.T) {
	objects := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/staff/orders/:id", want: "/staff/orders/:id"},
		{in: "/staff/orders/:id", want: "/staff/orders/:id"},
		{in: "staff/orders", want: "/staff/orders"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range objects {
		if got := NormalizeObject(item.in); got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}

	if got, err := NormalizeRole(" head waiter "); err != nil || got != "role:head_waiter" {
		t.Fatalf("normalize role got %q, %v", got, err)
	}
	if got, err := NormalizeRole("role:cashier"); err != nil || got != "role:cashier" {
		t.Fatalf("normalize prefixed role got %q, %v", got, err)
	}
	if _, err := NormalizeRole("role:"); err == nil {
		t.Fatalf("empty role should fail")
	}
}

func TestBootstrapBuiltinRoleMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复执行保持幂等
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles twice failed: %v", err)
	}

	roles, err := svc.Roles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	want := []string{"role:cashier", "role:courier", "role:kitchen", "role:manager", "role:staff_base", "role:waiter"}
	if strings.Join(roles, ",") != strings.Join(want, ",") {
		t.Fatalf("roles want %v got %v", want, roles)
	}

	staffRoles := map[uint]string{10: "manager", 11: "waiter", 12: "kitchen", 13: "cashier", 14: "courier"}
	for id, role := range staffRoles {
		if err := svc.AssignStaffRole(id, role); err != nil {
			t.Fatalf("assign %s failed: %v", role, err)
		}
	}

	cases := []struct {
		staffID uint
		obj     string
		act     string
		want    bool
	}{
		{11, "/staff/tables/:id/occupy", "POST", true},
		{11, "/staff/tables/:id/close", "POST", false},
		{11, "/staff/me", "GET", true},
		{14, "/staff/logout", "POST", true},
		{12, "/staff/orders/:id/advance", "POST", true},
		{12, "/staff/tables/:id/release", "POST", false},
		{13, "/staff/tables/:id/close", "POST", true},
		{13, "/staff/orders/:id/total", "PUT", true},
		{14, "/staff/routes/start", "POST", true},
		{14, "/staff/orders/:id/advance", "POST", false},
		{10, "/staff/tables", "POST", true},
		{10, "/staff/tables/:id", "DELETE", true},
		{10, "/staff/tokens/:id", "DELETE", true},
		{11, "/staff/tokens/:id", "DELETE", false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceStaff(tc.staffID, tc.obj, tc.act)
		if err != nil {
			t.Fatalf("enforce %d %s %s failed: %v", tc.staffID, tc.act, tc.obj, err)
		}
		if allow != tc.want {
			t.Fatalf("enforce %s %s %s = %v, want %v", staffRoles[tc.staffID], tc.act, tc.obj, allow, tc.want)
		}
	}

	policies, err := svc.StaffPolicies(14)
	if err != nil {
		t.Fatalf("get staff policies failed: %v", err)
	}
	foundRoutes := false
	for _, policy := range policies {
		if policy.Subject == "role:courier" && policy.Object == "/staff/routes/*" {
			foundRoutes = true
		}
	}
	if !foundRoutes {
		t.Fatalf("courier policies should include routes, got %+v", policies)
	}
}
