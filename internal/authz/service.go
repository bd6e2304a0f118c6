package authz

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	staffSubjectFmt = "staff:%d"
	rolePrefix      = "role:"
	// 所有已登记角色都挂在该节点下，用于枚举角色
	roleRegistry = "role:__registry__"
)

// ErrUnavailable 授权服务未初始化
var ErrUnavailable = errors.New("authz service unavailable")

// 请求对象为去掉 /api/v1 的路由模板，p.act 为 * 时匹配任意方法
const staffRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 员工授权服务
//
// 每个员工主体 staff:<id> 只归属一个 role:<角色>；角色之间可以继承，
// 策略只授予角色，不直接授予员工。
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 基于 gorm 适配器创建授权服务，策略持久化在 casbin_rule 表
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(staffRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceStaff 判断员工能否以 act 方法访问路由 obj
func (s *Service) EnforceStaff(staffID uint, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(SubjectForStaff(staffID), NormalizeObject(obj), NormalizeAction(act))
}

// AssignStaffRole 将员工归入唯一角色；已是该角色时不写库
func (s *Service) AssignStaffRole(staffID uint, role string) error {
	if staffID == 0 {
		return fmt.Errorf("staff id is required")
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	current, err := s.StaffRole(staffID)
	if err != nil {
		return err
	}
	if current == normalized {
		return nil
	}
	if _, err := s.registerRole(normalized); err != nil {
		return err
	}
	subject := SubjectForStaff(staffID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear staff role failed: %w", err)
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, normalized); err != nil {
		return fmt.Errorf("assign staff role failed: %w", err)
	}
	return nil
}

// StaffRole 员工直接归属的角色，未分配时返回空串
func (s *Service) StaffRole(staffID uint) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForStaff(staffID))
	if err != nil {
		return "", fmt.Errorf("get staff role failed: %w", err)
	}
	for _, role := range roles {
		if strings.HasPrefix(role, rolePrefix) && role != roleRegistry {
			return role, nil
		}
	}
	return "", nil
}

// StaffPolicies 员工经角色继承后的全部生效策略，按对象与方法排序
func (s *Service) StaffPolicies(staffID uint) ([]Policy, error) {
	if staffID == 0 {
		return nil, fmt.Errorf("staff id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetImplicitPermissionsForUser(SubjectForStaff(staffID))
	if err != nil {
		return nil, fmt.Errorf("get staff policies failed: %w", err)
	}

	result := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) >= 3 {
			result = append(result, Policy{
				Subject: strings.TrimSpace(rule[0]),
				Object:  NormalizeObject(rule[1]),
				Action:  NormalizeAction(rule[2]),
			})
		}
	}
	slices.SortFunc(result, func(a, b Policy) int {
		return cmp.Or(
			cmp.Compare(a.Object, b.Object),
			cmp.Compare(a.Action, b.Action),
			cmp.Compare(a.Subject, b.Subject),
		)
	})
	return slices.Compact(result), nil
}

// Roles 已登记的角色
func (s *Service) Roles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 1, roleRegistry)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 0 {
			roles = append(roles, rule[0])
		}
	}
	slices.Sort(roles)
	return roles, nil
}

// GrantRolePolicy 为角色授予路由权限，角色不存在时自动登记
func (s *Service) GrantRolePolicy(role, object, action string) error {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	_, err = s.grant(normalized, Policy{Object: object, Action: action})
	return err
}

// registerRole 登记角色，返回是否新增
func (s *Service) registerRole(role string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if role == roleRegistry {
		return false, fmt.Errorf("reserved role is not allowed")
	}
	added, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleRegistry)
	if err != nil {
		return false, fmt.Errorf("register role failed: %w", err)
	}
	return added, nil
}

func (s *Service) inherit(role, parent string) (bool, error) {
	added, err := s.enforcer.AddNamedGroupingPolicy("g", role, parent)
	if err != nil {
		return false, fmt.Errorf("link role inheritance failed: %w", err)
	}
	return added, nil
}

func (s *Service) grant(role string, policy Policy) (bool, error) {
	registered, err := s.registerRole(role)
	if err != nil {
		return false, err
	}
	action := NormalizeAction(policy.Action)
	if action == "" {
		return false, fmt.Errorf("action is required")
	}
	added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
	if err != nil {
		return false, fmt.Errorf("grant policy failed: %w", err)
	}
	return registered || added, nil
}

// SubjectForStaff 员工主体标识
func SubjectForStaff(staffID uint) string {
	return fmt.Sprintf(staffSubjectFmt, staffID)
}

// NormalizeRole waiter -> role:waiter
func NormalizeRole(role string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	normalized = strings.TrimPrefix(normalized, rolePrefix)
	if normalized == "" {
		return "", fmt.Errorf("role is required")
	}
	return rolePrefix + normalized, nil
}

// NormalizeObject 去掉 /api/v1 前缀，保证以 / 开头
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	switch {
	case normalized == apiV1Prefix:
		return "/"
	case strings.HasPrefix(normalized, apiV1Prefix+"/"):
		return strings.TrimPrefix(normalized, apiV1Prefix)
	default:
		return normalized
	}
}

// NormalizeAction 方法名统一大写
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
