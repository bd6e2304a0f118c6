package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/comanda-next/internal/app"
	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	// 解析命令行参数，需在加载配置前绑定
	config.BindFlags(pflag.CommandLine)
	pflag.Parse()
	mode := config.Mode()
	if mode == "" {
		mode = app.ModeAll
	}

	printStartupBanner(mode)

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.StdLogger().Fatalf("配置加载失败: %v", err)
	}
	logOptions := cfg.Log.ToLoggerOptions()
	logOptions.Service = mode
	logger.Init(cfg.Server.Mode, logOptions)
	stdLog := logger.StdLogger()

	if cfg.JWT.IsWeak() {
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
		stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 首次启动创建默认门店与店长
	defaultTenant := os.Getenv("CM_DEFAULT_TENANT")
	defaultManagerUser := os.Getenv("CM_DEFAULT_MANAGER_USERNAME")
	defaultManagerPass := os.Getenv("CM_DEFAULT_MANAGER_PASSWORD")
	if cfg.Server.Mode == "release" && defaultManagerPass == "" {
		stdLog.Printf("警告: 未设置 CM_DEFAULT_MANAGER_PASSWORD，已跳过默认店长初始化")
	} else if err := models.InitDefaultManager(defaultTenant, defaultManagerUser, defaultManagerPass); err != nil {
		stdLog.Printf("警告: 初始化默认店长失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║               🍽  Comanda-Next 启动中               ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + " ██████╗ ██████╗ ███╗   ███╗ █████╗ ███╗   ██╗██████╗  █████╗ " + ansiReset)
	fmt.Println(ansiCyan + "██╔════╝██╔═══██╗████╗ ████║██╔══██╗████╗  ██║██╔══██╗██╔══██╗" + ansiReset)
	fmt.Println(ansiCyan + "██║     ██║   ██║██╔████╔██║███████║██╔██╗ ██║██║  ██║███████║" + ansiReset)
	fmt.Println(ansiCyan + "██║     ██║   ██║██║╚██╔╝██║██╔══██║██║╚██╗██║██║  ██║██╔══██║" + ansiReset)
	fmt.Println(ansiCyan + "╚██████╗╚██████╔╝██║ ╚═╝ ██║██║  ██║██║ ╚████║██████╔╝██║  ██║" + ansiReset)
	fmt.Println(ansiCyan + " ╚═════╝ ╚═════╝ ╚═╝     ╚═╝╚═╝  ╚═╝╚═╝  ╚═══╝╚═════╝ ╚═╝  ╚═╝" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "mode: " + mode + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}
