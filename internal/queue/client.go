package queue

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/constants"

	"github.com/hibiken/asynq"
)

// DefaultQueue 普通优先级队列
const DefaultQueue = constants.QueueDefault

const (
	defaultConcurrency = 10
	notifyMaxRetry     = 3
)

// enqueuer asynq.Client 的投递子集
type enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client 任务投递端；未启用时所有投递直接返回 nil
type Client struct {
	inner enqueuer
}

// NewClient 队列未启用时返回空客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{inner: asynq.NewClient(redisOpt(cfg))}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.inner != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.inner.Close()
}

// EnqueueResponderNotify 订单状态变化后通知下单人
func (c *Client) EnqueueResponderNotify(payload ResponderNotifyPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewResponderNotifyTask(payload)
	if err != nil {
		return err
	}
	_, err = c.inner.Enqueue(task, append([]asynq.Option{asynq.Queue(DefaultQueue), asynq.MaxRetry(notifyMaxRetry)}, opts...)...)
	return err
}

// EnqueueOrderConfirmTimeout 延迟检查未确认订单；同一订单重复投递视为成功
func (c *Client) EnqueueOrderConfirmTimeout(payload OrderConfirmTimeoutPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderConfirmTimeoutTask(payload)
	if err != nil {
		return err
	}
	_, err = c.inner.Enqueue(task,
		asynq.Queue(constants.QueueCritical),
		asynq.ProcessIn(max(delay, 0)),
		asynq.TaskID(fmt.Sprintf(constants.TaskOrderConfirmTimeoutUniq, payload.OrderID)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// BuildServerConfig 消费端连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{DefaultQueue: 1, constants.QueueCritical: 1},
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
