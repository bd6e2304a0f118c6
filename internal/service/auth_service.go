package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/comanda-next/internal/cache"
	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 员工认证服务
type AuthService struct {
	cfg        *config.Config
	tenantRepo repository.TenantRepository
	staffRepo  repository.StaffRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, tenantRepo repository.TenantRepository, staffRepo repository.StaffRepository) *AuthService {
	return &AuthService{
		cfg:        cfg,
		tenantRepo: tenantRepo,
		staffRepo:  staffRepo,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// JWTClaims 员工 JWT 声明
type JWTClaims struct {
	StaffID      uint   `json:"staff_id"`
	TenantID     uint   `json:"tenant_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(staff *models.Staff) (string, time.Time, error) {
	hours := s.cfg.JWT.ExpireHours
	if hours <= 0 {
		hours = 12
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	claims := JWTClaims{
		StaffID:      staff.ID,
		TenantID:     staff.TenantID,
		Username:     staff.Username,
		Role:         staff.Role,
		TokenVersion: staff.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 校验签名与有效期，只接受 HS256
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt())
	if err != nil {
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	if claims.StaffID == 0 || claims.TenantID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Authenticate 校验令牌并核对鉴权快照：租户一致、账号启用、令牌版本未变
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*cache.StaffAuthState, *JWTClaims, error) {
	claims, err := s.ParseJWT(tokenString)
	if err != nil {
		return nil, nil, err
	}
	state, err := s.LoadAuthState(ctx, claims.TenantID, claims.StaffID)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case state == nil || state.TenantID != claims.TenantID:
		return nil, nil, ErrTokenInvalid
	case !strings.EqualFold(strings.TrimSpace(state.Status), constants.StatusActive):
		return nil, nil, ErrStaffDisabled
	case claims.TokenVersion != state.TokenVersion:
		return nil, nil, ErrTokenRevoked
	}
	return state, claims, nil
}

// Login 员工登录
func (s *AuthService) Login(tenantSlug, username, password string) (*models.Staff, string, time.Time, error) {
	tenant, err := s.tenantRepo.GetBySlug(tenantSlug)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if tenant == nil || tenant.Status != constants.StatusActive {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	staff, err := s.staffRepo.GetByUsername(tenant.ID, strings.TrimSpace(username))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if staff == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if staff.Status != constants.StatusActive {
		return nil, "", time.Time{}, ErrStaffDisabled
	}

	token, expiresAt, err := s.GenerateJWT(staff)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	staff.LastLoginAt = &now
	if err := s.staffRepo.TouchLastLogin(staff.ID, now); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetStaffAuthState(context.Background(), cache.BuildStaffAuthState(staff))

	return staff, token, expiresAt, nil
}

// LoadAuthState 读取员工鉴权快照（优先缓存）
func (s *AuthService) LoadAuthState(ctx context.Context, tenantID, staffID uint) (*cache.StaffAuthState, error) {
	state, hit, err := cache.GetStaffAuthState(ctx, staffID)
	if err == nil && hit && state != nil {
		return state, nil
	}
	staff, err := s.staffRepo.GetByID(tenantID, staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, nil
	}
	state = cache.BuildStaffAuthState(staff)
	_ = cache.SetStaffAuthState(ctx, state)
	return state, nil
}

// Logout 使该员工所有已签发令牌失效
func (s *AuthService) Logout(ctx context.Context, staffID uint) error {
	if staffID == 0 {
		return ErrValidation
	}
	if err := s.staffRepo.BumpTokenVersion(staffID); err != nil {
		return err
	}
	return cache.DelStaffAuthState(ctx, staffID)
}
