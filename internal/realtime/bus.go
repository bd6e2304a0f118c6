package realtime

import (
	"context"
	"errors"

	"github.com/comanda-next/internal/logger"

	"golang.org/x/sync/errgroup"
)

// Relay 跨实例中继：Publish 发出事件，Run 把收到的事件交给 dispatch
type Relay interface {
	Publish(ctx context.Context, event Event) error
	Run(ctx context.Context, dispatch func(Event)) error
	Close() error
}

// Sink 事件导出（不参与订阅分发）
type Sink interface {
	Export(ctx context.Context, event Event)
	Close() error
}

// Bus 实时事件总线
type Bus struct {
	hub   *Hub
	relay Relay
	sinks []Sink
}

// Option Bus 配置项
type Option func(*Bus)

// WithRelay 启用跨实例中继
func WithRelay(relay Relay) Option {
	return func(b *Bus) {
		b.relay = relay
	}
}

// WithSink 追加事件导出
func WithSink(sink Sink) Option {
	return func(b *Bus) {
		if sink != nil {
			b.sinks = append(b.sinks, sink)
		}
	}
}

// NewBus 创建事件总线
func NewBus(hub *Hub, opts ...Option) *Bus {
	if hub == nil {
		hub = NewHub(0)
	}
	bus := &Bus{hub: hub}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Hub 返回本地分发器
func (b *Bus) Hub() *Hub {
	return b.hub
}

// Publish 发布事件；中继失败时回退到本地分发，从不返回错误
func (b *Bus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	for _, sink := range b.sinks {
		sink.Export(ctx, event)
	}
	if b.relay != nil {
		err := b.relay.Publish(ctx, event)
		if err == nil {
			return
		}
		logger.Warnw("realtime_relay_publish_failed",
			"tenant_id", event.TenantID,
			"event", event.Name(),
			"resource_id", event.ResourceID,
			"error", err,
		)
	}
	b.hub.Dispatch(event)
}

// Name 服务名称
func (b *Bus) Name() string {
	return "realtime"
}

// Start 运行中继订阅循环，直到 ctx 结束
func (b *Bus) Start(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if b.relay != nil {
		group.Go(func() error {
			return b.relay.Run(groupCtx, func(event Event) {
				b.hub.Dispatch(event)
			})
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop 关闭中继与导出
func (b *Bus) Stop(ctx context.Context) error {
	var errs []error
	if b.relay != nil {
		if err := b.relay.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, sink := range b.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
