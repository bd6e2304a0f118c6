package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/comanda-next/internal/cache"
	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/repository"

	"github.com/zeebo/blake3"
	"gorm.io/gorm"
)

// TokenService 公开访问令牌：解析、校验、签发、吊销
type TokenService struct {
	tokenRepo   repository.AccessTokenRepository
	cacheTTL    time.Duration
	tableTTL    time.Duration
	deliveryTTL time.Duration
}

// TokenOptions 令牌有效期配置，0 表示不过期/不缓存
type TokenOptions struct {
	CacheTTL    time.Duration
	TableTTL    time.Duration
	DeliveryTTL time.Duration
}

// NewTokenService 创建令牌服务
func NewTokenService(tokenRepo repository.AccessTokenRepository, opts TokenOptions) *TokenService {
	return &TokenService{
		tokenRepo:   tokenRepo,
		cacheTTL:    opts.CacheTTL,
		tableTTL:    opts.TableTTL,
		deliveryTTL: opts.DeliveryTTL,
	}
}

// IssuedToken 签发结果，Raw 只在签发时返回一次
type IssuedToken struct {
	Token *models.AccessToken `json:"token"`
	Raw   string              `json:"raw"`
}

// ResolveToken 从二维码内容中取出令牌
//
// 支持带 t（优先）或 token 查询参数的链接，也支持裸令牌。
func ResolveToken(raw string) (string, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return "", opError(ErrInvalidTokenFormat, "", 0, "empty payload")
	}
	token := payload
	if strings.Contains(payload, "://") || strings.Contains(payload, "?") {
		parsed, err := url.Parse(payload)
		if err != nil {
			return "", opError(ErrInvalidTokenFormat, "", 0, "malformed url")
		}
		query := parsed.Query()
		token = strings.TrimSpace(query.Get("t"))
		if token == "" {
			token = strings.TrimSpace(query.Get("token"))
		}
		if token == "" {
			return "", opError(ErrInvalidTokenFormat, "", 0, "token parameter missing")
		}
	}
	if !isValidTokenShape(token) {
		return "", opError(ErrInvalidTokenFormat, "", 0, "unexpected token shape")
	}
	return token, nil
}

func isValidTokenShape(token string) bool {
	if len(token) < constants.TokenMinLength || len(token) > constants.TokenMaxLength {
		return false
	}
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// TokenDigest 令牌摘要（库中只存摘要）
func TokenDigest(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRawToken() (string, error) {
	buf := make([]byte, constants.TokenRawBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isValidTokenKind(kind string) bool {
	return kind == constants.TokenKindTable || kind == constants.TokenKindDelivery
}

// Resolve 解析二维码内容
func (s *TokenService) Resolve(raw string) (string, error) {
	return ResolveToken(raw)
}

// Authorize 校验令牌并返回其指向的资源ID；任何不匹配都返回 ErrNotFound
func (s *TokenService) Authorize(ctx context.Context, tenantID uint, token, kind string) (uint, error) {
	if !isValidTokenShape(token) {
		return 0, opError(ErrInvalidTokenFormat, "", 0, "unexpected token shape")
	}
	if tenantID == 0 || !isValidTokenKind(kind) {
		return 0, opError(ErrNotFound, "token", 0, "")
	}
	digest := TokenDigest(token)
	now := time.Now()

	if grant, hit, err := cache.GetTokenGrant(ctx, tenantID, digest); err == nil && hit && grant != nil {
		if grant.Kind == kind && (grant.ExpiresAt == 0 || grant.ExpiresAt > now.Unix()) {
			return grant.ResourceID, nil
		}
	}

	record, err := s.tokenRepo.FindUsable(tenantID, digest, kind, now)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, opError(ErrNotFound, "token", 0, "")
	}

	grant := &cache.TokenGrant{TokenID: record.ID, Kind: record.Kind, ResourceID: record.ResourceID}
	if record.ExpiresAt != nil {
		grant.ExpiresAt = record.ExpiresAt.Unix()
	}
	if err := cache.SetTokenGrant(ctx, tenantID, digest, grant, s.cacheTTL); err != nil {
		logger.Warnw("token_grant_cache_set_failed", "tenant_id", tenantID, "token_id", record.ID, "error", err)
	}
	return record.ResourceID, nil
}

// ResolveAndAuthorize 解析二维码内容并校验
func (s *TokenService) ResolveAndAuthorize(ctx context.Context, tenantID uint, raw, kind string) (uint, error) {
	token, err := ResolveToken(raw)
	if err != nil {
		return 0, err
	}
	return s.Authorize(ctx, tenantID, token, kind)
}

// Issue 为资源签发令牌，ttl 为 0 时使用该类型的默认有效期
func (s *TokenService) Issue(tenantID uint, kind string, resourceID uint, ttl time.Duration, issuedBy string) (*IssuedToken, error) {
	return s.issue(s.tokenRepo, tenantID, kind, resourceID, ttl, issuedBy)
}

// IssueWithTx 在事务内签发令牌
func (s *TokenService) IssueWithTx(tx *gorm.DB, tenantID uint, kind string, resourceID uint, ttl time.Duration, issuedBy string) (*IssuedToken, error) {
	return s.issue(s.tokenRepo.WithTx(tx), tenantID, kind, resourceID, ttl, issuedBy)
}

func (s *TokenService) issue(repo repository.AccessTokenRepository, tenantID uint, kind string, resourceID uint, ttl time.Duration, issuedBy string) (*IssuedToken, error) {
	if !isValidTokenKind(kind) {
		return nil, validationError("unknown token kind")
	}
	if tenantID == 0 || resourceID == 0 {
		return nil, validationError("resource required")
	}
	if ttl <= 0 {
		switch kind {
		case constants.TokenKindTable:
			ttl = s.tableTTL
		case constants.TokenKindDelivery:
			ttl = s.deliveryTTL
		}
	}
	raw, err := generateRawToken()
	if err != nil {
		return nil, err
	}
	record := &models.AccessToken{
		TenantID:   tenantID,
		Kind:       kind,
		ResourceID: resourceID,
		TokenHash:  TokenDigest(raw),
		IssuedBy:   issuedBy,
	}
	if ttl > 0 {
		expiresAt := time.Now().Add(ttl)
		record.ExpiresAt = &expiresAt
	}
	if err := repo.Create(record); err != nil {
		return nil, err
	}
	return &IssuedToken{Token: record, Raw: raw}, nil
}

// Revoke 吊销令牌并清理授权缓存
func (s *TokenService) Revoke(ctx context.Context, tenantID, tokenID uint) error {
	record, err := s.tokenRepo.GetByID(tenantID, tokenID)
	if err != nil {
		return err
	}
	if record == nil {
		return opError(ErrNotFound, "token", tokenID, "")
	}
	if _, err := s.tokenRepo.Revoke(tenantID, tokenID, time.Now()); err != nil {
		return err
	}
	if err := cache.DelTokenGrant(ctx, tenantID, record.TokenHash); err != nil {
		logger.Warnw("token_grant_cache_del_failed", "tenant_id", tenantID, "token_id", tokenID, "error", err)
	}
	return nil
}

// ListForResource 资源下的令牌（不含原文）
func (s *TokenService) ListForResource(tenantID uint, kind string, resourceID uint) ([]models.AccessToken, error) {
	return s.tokenRepo.ListByResource(tenantID, kind, resourceID)
}

// PurgeStale 删除失效超过 retention 的令牌记录
func (s *TokenService) PurgeStale(now time.Time, retention time.Duration) (int64, error) {
	if retention < 0 {
		retention = 0
	}
	removed, err := s.tokenRepo.DeleteStale(now.Add(-retention))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Infow("access_token_purged", "removed", removed)
	}
	return removed, nil
}
