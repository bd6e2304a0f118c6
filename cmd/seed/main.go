package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/repository"
	"github.com/comanda-next/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

const (
	demoTenantSlug = "demo"
	demoMenuSlug   = "dinner"
	demoTableCount = 10
)

const demoMenuSchema = `{
	"fields": [
		{"key": "name", "type": "text", "required": true, "max_len": 60, "label": {"zh-CN": "姓名", "en-US": "Name", "pt-BR": "Nome"}},
		{"key": "phone", "type": "phone", "label": {"zh-CN": "电话", "en-US": "Phone", "pt-BR": "Telefone"}},
		{"key": "notes", "type": "textarea", "max_len": 500}
	]
}`

var demoRoles = []string{
	constants.StaffRoleManager,
	constants.StaffRoleWaiter,
	constants.StaffRoleKitchen,
	constants.StaffRoleCashier,
	constants.StaffRoleCourier,
}

func main() {
	// 连接数据库
	cfg, err := config.Load()
	if err != nil {
		logger.StdLogger().Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 门店
	var tenant models.Tenant
	if err := models.DB.Where("slug = ?", demoTenantSlug).FirstOrCreate(&tenant, models.Tenant{
		Slug:   demoTenantSlug,
		Name:   "Demo Bistro",
		Status: constants.StatusActive,
	}).Error; err != nil {
		stdLog.Fatalf("Failed to create tenant: %v", err)
	}

	// 菜单表单
	schema, err := service.NormalizeMenuFormSchema(datatypes.JSON(demoMenuSchema))
	if err != nil {
		stdLog.Fatalf("Invalid menu schema: %v", err)
	}
	var form models.MenuForm
	if err := models.DB.Where("tenant_id = ? AND slug = ?", tenant.ID, demoMenuSlug).FirstOrCreate(&form, models.MenuForm{
		TenantID:      tenant.ID,
		Slug:          demoMenuSlug,
		Name:          "Dinner",
		DefaultOrigin: constants.OrderOriginCounter,
		Schema:        schema,
		IsActive:      true,
	}).Error; err != nil {
		stdLog.Fatalf("Failed to create menu form: %v", err)
	}

	// 员工账号，每个角色一个
	password := strings.TrimSpace(os.Getenv("CM_SEED_PASSWORD"))
	if password == "" {
		password = "comanda123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash password: %v", err)
	}
	for _, role := range demoRoles {
		var staff models.Staff
		if err := models.DB.Where("tenant_id = ? AND username = ?", tenant.ID, role).FirstOrCreate(&staff, models.Staff{
			TenantID:     tenant.ID,
			Username:     role,
			DisplayName:  strings.ToUpper(role[:1]) + role[1:],
			PasswordHash: string(hash),
			Role:         role,
			Status:       constants.StatusActive,
		}).Error; err != nil {
			stdLog.Fatalf("Failed to create staff %s: %v", role, err)
		}
	}

	// 桌台与二维码令牌
	tableRepo := repository.NewTableRepository(models.DB)
	tableService := service.NewTableService(tableRepo, repository.NewContactRepository(models.DB), nil)
	tokenService := service.NewTokenService(repository.NewAccessTokenRepository(models.DB), service.TokenOptions{})

	existing, err := tableService.List(repository.TableListFilter{TenantID: tenant.ID})
	if err != nil {
		stdLog.Fatalf("Failed to list tables: %v", err)
	}
	tables := existing
	if len(existing) == 0 {
		capacity := 4
		tables, err = tableService.CreateBulk(context.Background(), tenant.ID, service.CreateTablesBulkInput{
			Count:      demoTableCount,
			Prefix:     "Mesa ",
			StartIndex: 1,
			Kind:       constants.TableKindTable,
			Capacity:   &capacity,
			Section:    "salao",
			MenuFormID: &form.ID,
		})
		if err != nil {
			stdLog.Fatalf("Failed to create tables: %v", err)
		}
	}

	fmt.Printf("tenant: %s (id=%d)\n", tenant.Slug, tenant.ID)
	fmt.Printf("menu:   /api/v1/public/%s/menus/%s\n", tenant.Slug, form.Slug)
	fmt.Printf("staff:  %s / %s\n", strings.Join(demoRoles, ", "), password)
	for _, table := range tables {
		issued, err := tokenService.Issue(tenant.ID, constants.TokenKindTable, table.ID, 0, constants.ActorSystem)
		if err != nil {
			stdLog.Fatalf("Failed to issue token for table %d: %v", table.ID, err)
		}
		fmt.Printf("table %-10s /api/v1/public/%s/tables/%d/resolve?t=%s\n", table.Label, tenant.Slug, table.ID, issued.Raw)
	}
	stdLog.Println("Seed data created successfully!")
}
