package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/comanda-next/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisRelay 基于 Redis Pub/Sub 的跨实例中继，每个租户一个频道
type RedisRelay struct {
	client *redis.Client
	prefix string
	pubsub *redis.PubSub
}

// NewRedisRelay 创建 Redis 中继
func NewRedisRelay(client *redis.Client, prefix string) *RedisRelay {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "cn"
	}
	return &RedisRelay{client: client, prefix: prefix}
}

// Channel 租户频道名
func (r *RedisRelay) Channel(tenantID uint) string {
	return fmt.Sprintf("%s:rt:tenant:%d", r.prefix, tenantID)
}

func (r *RedisRelay) pattern() string {
	return r.prefix + ":rt:tenant:*"
}

// Publish 发布到租户频道
func (r *RedisRelay) Publish(ctx context.Context, event Event) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis relay not initialized")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.Channel(event.TenantID), payload).Err()
}

// Run 订阅所有租户频道并分发
func (r *RedisRelay) Run(ctx context.Context, dispatch func(Event)) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis relay not initialized")
	}
	r.pubsub = r.client.PSubscribe(ctx, r.pattern())
	if _, err := r.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis relay subscribe failed: %w", err)
	}
	logger.Infow("realtime_relay_subscribed", "pattern", r.pattern())

	messages := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warnw("realtime_relay_decode_failed", "channel", msg.Channel, "error", err)
				continue
			}
			dispatch(event)
		}
	}
}

// Close 关闭订阅
func (r *RedisRelay) Close() error {
	if r == nil || r.pubsub == nil {
		return nil
	}
	return r.pubsub.Close()
}
