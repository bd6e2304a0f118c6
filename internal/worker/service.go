package worker

import (
	"context"
	"errors"
	"time"

	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/queue"

	"github.com/hibiken/asynq"
)

const tokenPurgeInterval = time.Hour

// stalePurger 清理过期或已撤销的访问令牌
type stalePurger interface {
	PurgeStale(now time.Time, retention time.Duration) (int64, error)
}

// tokenPurger 周期性硬删除超过保留期的令牌
type tokenPurger struct {
	purger    stalePurger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// run 启动时先执行一次，之后按 interval 执行，直到 ctx 结束
func (p *tokenPurger) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		removed, err := p.purger.PurgeStale(p.now(), p.retention)
		if err != nil {
			logger.Warnw("worker_token_purge_failed", "error", err)
		} else if removed > 0 {
			logger.Infow("worker_token_purged", "removed", removed)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Service 队列消费进程：asynq 服务端加令牌清理循环
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	purge  *tokenPurger
}

// NewService 队列未启用时返回错误，由调用方决定是否跳过 worker
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil || consumer.Container == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		logger.Warnw("worker_task_failed", "task_type", task.Type(), "error", err)
	})
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	svc := &Service{server: asynq.NewServer(opt, serverCfg), mux: mux}
	if consumer.Config != nil && consumer.TokenService != nil && consumer.Config.Token.PurgeRetentionHours > 0 {
		svc.purge = &tokenPurger{
			purger:    consumer.TokenService,
			retention: time.Duration(consumer.Config.Token.PurgeRetentionHours) * time.Hour,
			interval:  tokenPurgeInterval,
			now:       time.Now,
		}
	}
	return svc, nil
}

func (s *Service) Name() string { return "worker" }

// Start 非阻塞启动 asynq，随后阻塞到 ctx 结束；信号由外层 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	if s.purge != nil {
		s.purge.run(ctx)
		return nil
	}
	<-ctx.Done()
	return nil
}

// Stop 等待在途任务完成，超时由 asynq 的 ShutdownTimeout 控制
func (s *Service) Stop(context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}
