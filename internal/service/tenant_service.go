package service

import (
	"strings"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/repository"
)

// TenantService 租户解析
type TenantService struct {
	tenantRepo repository.TenantRepository
}

// NewTenantService 创建租户服务
func NewTenantService(tenantRepo repository.TenantRepository) *TenantService {
	return &TenantService{tenantRepo: tenantRepo}
}

// ResolveActive 按 slug 获取启用中的租户，停用或不存在都视为不存在
func (s *TenantService) ResolveActive(slug string) (*models.Tenant, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, opError(ErrNotFound, "tenant", 0, "")
	}
	tenant, err := s.tenantRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if tenant == nil || tenant.Status != constants.StatusActive {
		return nil, opError(ErrNotFound, "tenant", 0, "")
	}
	return tenant, nil
}
