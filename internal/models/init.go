package models

import (
	"strings"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTenantSlug      = "default"
	defaultManagerUsername = "manager"
	defaultManagerPassword = "manager123"
)

// InitDefaultManager 首次启动时创建默认门店与店长账号
func InitDefaultManager(tenantSlug, username, password string) error {
	var count int64
	if err := DB.Model(&Staff{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tenantSlug = strings.TrimSpace(tenantSlug)
	if tenantSlug == "" {
		tenantSlug = defaultTenantSlug
	}
	if username == "" {
		username = defaultManagerUsername
	}
	if password == "" {
		password = defaultManagerPassword
	}

	var tenant Tenant
	if err := DB.Where("slug = ?", tenantSlug).FirstOrCreate(&tenant, Tenant{
		Slug:   tenantSlug,
		Name:   tenantSlug,
		Status: constants.StatusActive,
	}).Error; err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	staff := Staff{
		TenantID:     tenant.ID,
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		Role:         constants.StaffRoleManager,
		Status:       constants.StatusActive,
	}
	if err := DB.Create(&staff).Error; err != nil {
		return err
	}

	if password == defaultManagerPassword {
		logger.Warnw("default_manager_created_with_default_password", "tenant", tenantSlug, "username", username)
	} else {
		logger.Warnw("default_manager_created", "tenant", tenantSlug, "username", username, "password_hidden", true)
	}
	return nil
}
