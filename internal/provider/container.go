package provider

import (
	"time"

	"github.com/comanda-next/internal/authz"
	"github.com/comanda-next/internal/cache"
	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/queue"
	"github.com/comanda-next/internal/realtime"
	"github.com/comanda-next/internal/repository"
	"github.com/comanda-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Hub         *realtime.Hub
	Bus         *realtime.Bus

	// Repositories
	TenantRepo        repository.TenantRepository
	StaffRepo         repository.StaffRepository
	TableRepo         repository.TableRepository
	ContactRepo       repository.ContactRepository
	MenuFormRepo      repository.MenuFormRepository
	OrderRepo         repository.OrderRepository
	AccessTokenRepo   repository.AccessTokenRepository
	DeliveryRouteRepo repository.DeliveryRouteRepository

	// Services
	AuthzService         *authz.Service
	AuthService          *service.AuthService
	CaptchaService       *service.CaptchaService
	TenantService        *service.TenantService
	TokenService         *service.TokenService
	TableService         *service.TableService
	OrderService         *service.OrderService
	BillService          *service.BillService
	DeliveryRouteService *service.DeliveryRouteService
	NotificationService  *service.NotificationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化实时事件总线
	c.initRealtime()

	// 2. 初始化 Repositories
	c.initRepositories()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRealtime() {
	c.Hub = realtime.NewHub(c.Config.Realtime.SubscriberBuffer)

	var opts []realtime.Option
	if c.Config.Realtime.RedisRelay {
		if client := cache.Client(); client != nil {
			opts = append(opts, realtime.WithRelay(realtime.NewRedisRelay(client, cache.Prefix())))
		} else {
			logger.Warnw("provider_realtime_relay_skipped", "reason", "redis disabled")
		}
	}
	if c.Config.Realtime.Kafka.Enabled {
		brokers := realtime.ParseKafkaBrokers(c.Config.Realtime.Kafka.Brokers)
		if len(brokers) > 0 {
			opts = append(opts, realtime.WithSink(realtime.NewKafkaSink(brokers, c.Config.Realtime.Kafka.Topic)))
		} else {
			logger.Warnw("provider_realtime_kafka_skipped", "reason", "no brokers")
		}
	}
	c.Bus = realtime.NewBus(c.Hub, opts...)
}

func (c *Container) initRepositories() {
	db := models.DB
	c.TenantRepo = repository.NewTenantRepository(db)
	c.StaffRepo = repository.NewStaffRepository(db)
	c.TableRepo = repository.NewTableRepository(db)
	c.ContactRepo = repository.NewContactRepository(db)
	c.MenuFormRepo = repository.NewMenuFormRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.AccessTokenRepo = repository.NewAccessTokenRepository(db)
	c.DeliveryRouteRepo = repository.NewDeliveryRouteRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	cfg := c.Config
	c.AuthService = service.NewAuthService(cfg, c.TenantRepo, c.StaffRepo)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha)
	c.TenantService = service.NewTenantService(c.TenantRepo)
	c.TokenService = service.NewTokenService(c.AccessTokenRepo, service.TokenOptions{
		CacheTTL:    time.Duration(cfg.Token.CacheTTLSeconds) * time.Second,
		TableTTL:    time.Duration(cfg.Token.TableTTLHours) * time.Hour,
		DeliveryTTL: time.Duration(cfg.Token.DeliveryTTLHours) * time.Hour,
	})
	c.TableService = service.NewTableService(c.TableRepo, c.ContactRepo, c.Bus)
	c.OrderService = service.NewOrderService(
		c.TenantService,
		c.MenuFormRepo,
		c.OrderRepo,
		c.ContactRepo,
		c.TableService,
		c.TokenService,
		c.QueueClient,
		c.Bus,
		service.OrderOptions{
			ProtocolPrefix:    cfg.Order.ProtocolPrefix,
			ConfirmTimeout:    time.Duration(cfg.Order.ConfirmTimeoutMinutes) * time.Minute,
			RequireTableToken: cfg.Order.RequireTableToken,
		},
	)
	c.BillService = service.NewBillService(c.OrderRepo, c.TableService)
	c.DeliveryRouteService = service.NewDeliveryRouteService(c.DeliveryRouteRepo, c.OrderRepo, c.TokenService, c.QueueClient, c.Bus)
	c.NotificationService = service.NewNotificationService(cfg.Notify, c.OrderRepo)
}
