package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/constants"

	"github.com/redis/go-redis/v9"
)

// store 进程内唯一的 Redis 连接；未启用时为 nil，所有读写退化为未命中
type store struct {
	client *redis.Client
	prefix string
}

var current *store

const pingTimeout = 3 * time.Second

// InitRedis 建立连接并探活；探活失败时仍保留客户端，由调用方决定是否继续
func InitRedis(cfg *config.RedisConfig) error {
	current = nil
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), ":")
	if prefix == "" {
		prefix = constants.RedisPrefixDefault
	}

	current = &store{
		client: redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: prefix,
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return current.client.Ping(ctx).Err()
}

// Client 未启用时返回 nil
func Client() *redis.Client {
	if current == nil {
		return nil
	}
	return current.client
}

// Prefix 业务键前缀，未启用时返回默认值
func Prefix() string {
	if current == nil {
		return constants.RedisPrefixDefault
	}
	return current.prefix
}

// Key 拼接带前缀的键
func Key(parts ...string) string {
	return strings.Join(append([]string{Prefix()}, parts...), ":")
}

// GetJSON 读取并反序列化，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if current == nil {
		return false, nil
	}
	raw, err := current.client.Get(ctx, Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 序列化后写入，ttl <= 0 表示不过期
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if current == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return current.client.Set(ctx, Key(key), payload, max(ttl, 0)).Err()
}

func Del(ctx context.Context, key string) error {
	if current == nil {
		return nil
	}
	return current.client.Del(ctx, Key(key)).Err()
}
