package cache

import (
	"context"
	"fmt"
	"time"
)

// TokenGrant 已验证令牌的授权结果（只缓存成功结果）
type TokenGrant struct {
	TokenID    uint   `json:"token_id"`
	Kind       string `json:"kind"`
	ResourceID uint   `json:"resource_id"`
	ExpiresAt  int64  `json:"expires_at"` // Unix 秒，0 表示不过期
}

func tokenGrantKey(tenantID uint, digest string) string {
	return fmt.Sprintf("token:%d:%s", tenantID, digest)
}

// GetTokenGrant 读取缓存的授权结果
func GetTokenGrant(ctx context.Context, tenantID uint, digest string) (*TokenGrant, bool, error) {
	if tenantID == 0 || digest == "" {
		return nil, false, nil
	}
	var grant TokenGrant
	hit, err := GetJSON(ctx, tokenGrantKey(tenantID, digest), &grant)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &grant, true, nil
}

// SetTokenGrant 缓存授权结果，TTL 不超过令牌剩余有效期
func SetTokenGrant(ctx context.Context, tenantID uint, digest string, grant *TokenGrant, ttl time.Duration) error {
	if grant == nil || tenantID == 0 || digest == "" || ttl <= 0 {
		return nil
	}
	if grant.ExpiresAt > 0 {
		remaining := time.Until(time.Unix(grant.ExpiresAt, 0))
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	return SetJSON(ctx, tokenGrantKey(tenantID, digest), grant, ttl)
}

// DelTokenGrant 删除授权缓存
func DelTokenGrant(ctx context.Context, tenantID uint, digest string) error {
	if tenantID == 0 || digest == "" {
		return nil
	}
	return Del(ctx, tokenGrantKey(tenantID, digest))
}
