package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/comanda-next/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	block    bool
	stopped  atomic.Bool
	order    *stopOrder
}

type stopOrder struct {
	mu    sync.Mutex
	names []string
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return nil
	}
	return s.startErr
}

func (s *fakeService) Stop(context.Context) error {
	s.stopped.Store(true)
	if s.order != nil {
		s.order.mu.Lock()
		s.order.names = append(s.order.names, s.name)
		s.order.mu.Unlock()
	}
	return nil
}

func TestRunnerStopsAllServicesWhenOneFails(t *testing.T) {
	failing := &fakeService{name: "http", startErr: errors.New("bind failed")}
	blocking := &fakeService{name: "realtime", block: true}

	err := NewRunner(failing, blocking).Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "bind failed" {
		t.Fatalf("run err want bind failed got %v", err)
	}
	if !failing.stopped.Load() || !blocking.stopped.Load() {
		t.Fatalf("all services should be stopped")
	}
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	blocking := &fakeService{name: "realtime", block: true}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := NewRunner(blocking).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancel should not be an error, got %v", err)
	}
	if !blocking.stopped.Load() {
		t.Fatalf("service should be stopped")
	}
}

func TestIsKnownMode(t *testing.T) {
	for _, mode := range []string{ModeAll, ModeAPI, ModeWorker} {
		if !isKnownMode(mode) {
			t.Fatalf("mode %s should be known", mode)
		}
	}
	if isKnownMode("cron") {
		t.Fatalf("unexpected mode accepted")
	}
}

func TestRunnerStopsInReverseOrder(t *testing.T) {
	order := &stopOrder{}
	bus := &fakeService{name: "realtime", block: true, order: order}
	api := &fakeService{name: "http", startErr: errors.New("boom"), order: order}

	if err := NewRunner(bus, api).Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected start error")
	}
	if len(order.names) != 2 || order.names[0] != "http" || order.names[1] != "realtime" {
		t.Fatalf("stop order want [http realtime] got %v", order.names)
	}
}

func TestHTTPServiceReportsBindFailure(t *testing.T) {
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "-1"}, http.NotFoundHandler())
	if err := svc.Start(context.Background()); err == nil {
		t.Fatalf("invalid port should fail to bind")
	}
	if svc.server.ReadHeaderTimeout != 10*time.Second {
		t.Fatalf("default read header timeout want 10s got %v", svc.server.ReadHeaderTimeout)
	}
}
