package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/comanda-next/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Order    OrderConfig    `mapstructure:"order"`
	Token    TokenConfig    `mapstructure:"token"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Captcha  CaptchaConfig  `mapstructure:"captcha"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
	// 读请求头超时；SSE 与 WebSocket 长连接不设整体写超时
	ReadHeaderTimeoutSeconds int `mapstructure:"read_header_timeout_seconds"`
	IdleTimeoutSeconds       int `mapstructure:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds   int `mapstructure:"shutdown_timeout_seconds"`
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 员工 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// OrderConfig 订单配置
type OrderConfig struct {
	ProtocolPrefix        string `mapstructure:"protocol_prefix"`
	ConfirmTimeoutMinutes int    `mapstructure:"confirm_timeout_minutes"` // 0 表示不自动取消
	RequireTableToken     bool   `mapstructure:"require_table_token"`     // 桌台引用必须携带有效桌台令牌
}

// TokenConfig 访问令牌配置
type TokenConfig struct {
	TableTTLHours    int `mapstructure:"table_ttl_hours"`    // 0 表示永不过期
	DeliveryTTLHours int `mapstructure:"delivery_ttl_hours"` // 0 表示永不过期
	CacheTTLSeconds  int `mapstructure:"cache_ttl_seconds"`
	// PurgeRetentionHours 失效令牌保留时长，worker 定期清理
	PurgeRetentionHours int `mapstructure:"purge_retention_hours"`
}

// RealtimeConfig 实时事件配置
type RealtimeConfig struct {
	SubscriberBuffer int                 `mapstructure:"subscriber_buffer"`
	RedisRelay       bool                `mapstructure:"redis_relay"`
	Kafka            RealtimeKafkaConfig `mapstructure:"kafka"`
}

// RealtimeKafkaConfig 事件导出到 Kafka
type RealtimeKafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"` // 逗号分隔
	Topic   string `mapstructure:"topic"`
}

// NotifyConfig 下单人通知配置
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

// CaptchaConfig 验证码配置
type CaptchaConfig struct {
	Provider string             `mapstructure:"provider"`
	Scenes   CaptchaSceneConfig `mapstructure:"scenes"`
	Image    CaptchaImageConfig `mapstructure:"image"`
}

// CaptchaSceneConfig 验证码场景开关
type CaptchaSceneConfig struct {
	StaffLogin  bool `mapstructure:"staff_login"`
	PublicOrder bool `mapstructure:"public_order"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit  RateLimitConfig `mapstructure:"login_rate_limit"`
	PublicRateLimit RateLimitConfig `mapstructure:"public_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// BindFlags 注册命令行参数并绑定到 viper
func BindFlags(fs *pflag.FlagSet) {
	fs.String("mode", "all", "运行模式: all | api | worker")
	fs.String("config", "", "配置文件路径")
	_ = viper.BindPFlag("app.mode", fs.Lookup("mode"))
	_ = viper.BindPFlag("app.config", fs.Lookup("config"))
}

// Mode 返回绑定后的运行模式
func Mode() string {
	return strings.TrimSpace(viper.GetString("app.mode"))
}

// defaults 未在配置文件与环境变量中出现的键使用此处的值
var defaults = map[string]interface{}{
	"server.host":                        "0.0.0.0",
	"server.port":                        "8080",
	"server.mode":                        "debug",
	"server.read_header_timeout_seconds": 10,
	"server.idle_timeout_seconds":        120,
	"server.shutdown_timeout_seconds":    15,

	"log.filename":     "comanda.log",
	"log.dir":          "",
	"log.max_size_mb":  100,
	"log.max_backups":  7,
	"log.max_age_days": 30,
	"log.compress":     true,

	"database.driver":                          "sqlite",
	"database.dsn":                             "./db/comanda.db",
	"database.pool.max_open_conns":             1,
	"database.pool.max_idle_conns":             1,
	"database.pool.conn_max_lifetime_seconds":  0,
	"database.pool.conn_max_idle_time_seconds": 0,

	"jwt.secret":       "change-me-in-production",
	"jwt.expire_hours": 12,

	"redis.enabled":  true,
	"redis.host":     "127.0.0.1",
	"redis.port":     6379,
	"redis.prefix":   "cn",
	"redis.password": "",
	"redis.db":       0,

	"queue.enabled":     true,
	"queue.host":        "127.0.0.1",
	"queue.port":        6379,
	"queue.db":          1,
	"queue.password":    "",
	"queue.concurrency": 10,
	"queue.queues":      map[string]int{"default": 10, "critical": 5},

	"cors.allowed_origins":   []string{"*"},
	"cors.allow_credentials": true,
	"cors.max_age":           600,
	"cors.allowed_methods":   []string{},
	"cors.allowed_headers":   []string{},

	"security.login_rate_limit.window_seconds":  300,
	"security.login_rate_limit.max_attempts":    5,
	"security.public_rate_limit.window_seconds": 60,
	"security.public_rate_limit.max_attempts":   30,

	"order.protocol_prefix":         "CN",
	"order.confirm_timeout_minutes": 0,
	"order.require_table_token":     false,

	"token.delivery_ttl_hours":    48,
	"token.cache_ttl_seconds":     60,
	"token.purge_retention_hours": 168,
	"token.table_ttl_hours":       0,

	"realtime.subscriber_buffer": 64,
	"realtime.kafka.brokers":     "127.0.0.1:9092",
	"realtime.kafka.topic":       "comanda.events",
	"realtime.redis_relay":       false,
	"realtime.kafka.enabled":     false,

	"notify.timeout_ms":  3000,
	"notify.webhook_url": "",

	"captcha.provider":             "none",
	"captcha.image.length":         5,
	"captcha.image.width":          240,
	"captcha.image.height":         80,
	"captcha.image.noise_count":    2,
	"captcha.image.show_line":      2,
	"captcha.image.expire_seconds": 300,
	"captcha.image.max_store":      10240,
	"captcha.scenes.staff_login":   false,
	"captcha.scenes.public_order":  false,
}

// Load 依次读取 .env、配置文件、环境变量（server.port -> SERVER_PORT），并校验
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.Infow("config_dotenv_loaded", "file", ".env")
	}

	if explicit := strings.TrimSpace(viper.GetString("app.config")); explicit != "" {
		viper.SetConfigFile(explicit)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("../")
		viper.AddConfigPath("./etc")
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var notFound viper.ConfigFileNotFoundError
	switch err := viper.ReadInConfig(); {
	case err == nil:
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	case errors.As(err, &notFound):
		logger.Warnw("config_file_missing", "fallback", "env_or_defaults")
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 启动前检查明显错误的配置
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port must be numeric, got %q", c.Server.Port))
	}
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", "sqlite", "postgres", "postgresql":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Realtime.Kafka.Enabled && strings.TrimSpace(c.Realtime.Kafka.Topic) == "" {
		errs = append(errs, errors.New("realtime.kafka.topic is required when kafka is enabled"))
	}
	for name, rule := range map[string]RateLimitConfig{
		"security.login_rate_limit":  c.Security.LoginRateLimit,
		"security.public_rate_limit": c.Security.PublicRateLimit,
	} {
		if rule.WindowSeconds < 0 || rule.MaxAttempts < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// IsWeak 密钥过短或仍是示例值
func (j JWTConfig) IsWeak() bool {
	if len(j.SecretKey) < 32 {
		return true
	}
	normalized := strings.ToLower(j.SecretKey)
	for _, marker := range []string{"change-me", "change-in-production", "your-secret-key"} {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
