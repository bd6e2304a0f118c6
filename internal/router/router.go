package router

import (
	"sort"
	"strings"

	"github.com/comanda-next/internal/authz"
	"github.com/comanda-next/internal/cache"
	"github.com/comanda-next/internal/config"
	publichandlers "github.com/comanda-next/internal/http/handlers/public"
	staffhandlers "github.com/comanda-next/internal/http/handlers/staff"
	"github.com/comanda-next/internal/http/response"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按顾客/员工分组）
	publicHandler := publichandlers.New(c)
	staffHandler := staffhandlers.New(c)
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        cache.Key("rate", "staff_login"),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}
	publicOrderRule := RateLimitRule{
		Prefix:        cache.Key("rate", "public_order"),
		WindowSeconds: cfg.Security.PublicRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PublicRateLimit.MaxAttempts,
		FailOpen:      true,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 顾客侧公开接口，按门店 slug 划分
		public := apiV1.Group("/public")
		{
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
			public.GET("/:tenant/menus/:slug", publicHandler.GetMenu)
			public.POST("/:tenant/menus/:slug/orders",
				RateLimitMiddleware(redisClient, publicOrderRule, KeyByTenantAndIP),
				publicHandler.SubmitOrder,
			)
			public.GET("/:tenant/tables/:id/resolve", publicHandler.GetTableMenu)
			public.GET("/:tenant/orders/track", publicHandler.TrackOrder)
			public.GET("/:tenant/orders/stream", publicHandler.StreamOrder)
		}

		staff := apiV1.Group("/staff")
		{
			staff.POST("/login",
				RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")),
				staffHandler.Login,
			)

			authorized := staff.Group("")
			authorized.Use(StaffJWTAuthMiddleware(cfg.JWT.SecretKey, c.AuthService), StaffRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/me", staffHandler.Me)
				authorized.POST("/logout", staffHandler.Logout)
				authorized.GET("/realtime", staffHandler.StreamEvents)
				authorized.GET("/permissions/catalog", func(ctx *gin.Context) {
					roles, err := c.AuthzService.Roles()
					if err != nil {
						log.Sugar().Errorw("staff_permission_roles_failed", "error", err)
						roles = []string{}
					}
					response.Success(ctx, gin.H{
						"roles":  roles,
						"routes": buildStaffPermissionCatalog(r),
					})
				})

				// 桌台与会话
				authorized.GET("/tables", staffHandler.ListTables)
				authorized.POST("/tables", staffHandler.CreateTable)
				authorized.POST("/tables/bulk", staffHandler.CreateTablesBulk)
				authorized.GET("/tables/:id", staffHandler.GetTable)
				authorized.PATCH("/tables/:id", staffHandler.UpdateTable)
				authorized.DELETE("/tables/:id", staffHandler.DeleteTable)
				authorized.POST("/tables/:id/occupy", staffHandler.OccupyTable)
				authorized.POST("/tables/:id/release", staffHandler.ReleaseTable)
				authorized.GET("/tables/:id/bill", staffHandler.GetTableBill)
				authorized.POST("/tables/:id/close", staffHandler.CloseTableSession)

				// 访问令牌
				authorized.GET("/tables/:id/tokens", staffHandler.ListTableTokens)
				authorized.POST("/tables/:id/tokens", staffHandler.IssueTableToken)
				authorized.DELETE("/tokens/:id", staffHandler.RevokeToken)

				// 订单流水线
				authorized.GET("/orders/queue", staffHandler.ListOrderQueue)
				authorized.GET("/orders/history", staffHandler.ListOrderHistory)
				authorized.GET("/orders/:id", staffHandler.GetOrder)
				authorized.GET("/orders/:id/logs", staffHandler.GetOrderLogs)
				authorized.POST("/orders/:id/advance", staffHandler.AdvanceOrder)
				authorized.PUT("/orders/:id/total", staffHandler.SetOrderTotal)

				// 配送路线
				authorized.POST("/routes/scan", staffHandler.ScanRouteOrder)
				authorized.POST("/routes/start", staffHandler.StartRoute)
				authorized.POST("/routes/finish", staffHandler.FinishRoute)
				authorized.GET("/routes/active", staffHandler.GetActiveRoute)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type staffPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildStaffPermissionCatalog 从已注册路由生成员工权限目录，供后台配置角色
func buildStaffPermissionCatalog(engine *gin.Engine) []staffPermissionCatalogItem {
	if engine == nil {
		return []staffPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]staffPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/staff/") {
			continue
		}
		if item.Path == "/api/v1/staff/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, staffPermissionCatalogItem{
			Module:     deriveStaffPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

// deriveStaffPermissionModule /staff/tables/:id/bill -> tables
func deriveStaffPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "staff" {
		return segments[0]
	}
	switch segments[1] {
	case "me", "logout", "realtime", "permissions":
		return "account"
	default:
		return segments[1]
	}
}
