package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/comanda-next/internal/constants"
)

func mustEvent(t *testing.T, tenantID uint, resourceID uint, action string, version uint64) Event {
	t.Helper()
	event, err := NewEvent(tenantID, constants.ResourceTable, resourceID, action, version, map[string]interface{}{"id": resourceID, "version": version}, nil)
	if err != nil {
		t.Fatalf("new event failed: %v", err)
	}
	return event
}

func TestHubDeliversOnlyToSameTenant(t *testing.T) {
	hub := NewHub(4)
	subA := hub.Subscribe(1, nil)
	subB := hub.Subscribe(2, nil)
	defer subA.Close()
	defer subB.Close()

	if delivered := hub.Dispatch(mustEvent(t, 1, 7, constants.EventActionOccupied, 1)); delivered != 1 {
		t.Fatalf("delivered want 1 got %d", delivered)
	}
	select {
	case event := <-subA.Events():
		if event.Name() != "table.occupied" {
			t.Fatalf("unexpected event name: %s", event.Name())
		}
	default:
		t.Fatalf("tenant 1 subscriber should receive event")
	}
	select {
	case event := <-subB.Events():
		t.Fatalf("tenant 2 subscriber should not receive event, got %+v", event)
	default:
	}
}

func TestHubDropsStaleVersions(t *testing.T) {
	hub := NewHub(8)
	sub := hub.Subscribe(1, nil)
	defer sub.Close()

	hub.Dispatch(mustEvent(t, 1, 7, constants.EventActionOccupied, 2))
	if delivered := hub.Dispatch(mustEvent(t, 1, 7, constants.EventActionReleased, 1)); delivered != 0 {
		t.Fatalf("stale event should be dropped, delivered=%d", delivered)
	}
	hub.Dispatch(mustEvent(t, 1, 7, constants.EventActionReleased, 3))
	// 其他资源不受影响
	hub.Dispatch(mustEvent(t, 1, 8, constants.EventActionOccupied, 1))

	var versions []uint64
	for len(sub.Events()) > 0 {
		event := <-sub.Events()
		versions = append(versions, event.Version)
	}
	if len(versions) != 3 || versions[0] != 2 || versions[1] != 3 || versions[2] != 1 {
		t.Fatalf("unexpected versions: %v", versions)
	}
}

func TestHubForgetsIdleResourceVersions(t *testing.T) {
	hub := NewHub(8)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	hub.now = func() time.Time { return clock }
	sub := hub.Subscribe(1, nil)
	defer sub.Close()

	for id := uint(1); id <= 3; id++ {
		hub.Dispatch(mustEvent(t, 1, id, constants.EventActionOccupied, 1))
	}
	if got := hub.TrackedVersions(); got != 3 {
		t.Fatalf("tracked want 3 got %d", got)
	}

	clock = clock.Add(versionRetention / 2)
	hub.Dispatch(mustEvent(t, 1, 3, constants.EventActionReleased, 2))
	clock = clock.Add(versionRetention/2 + time.Second)
	hub.Dispatch(mustEvent(t, 1, 4, constants.EventActionOccupied, 1))

	// 资源 1、2 已闲置超过保留期，3 在半周期前刚更新
	if got := hub.TrackedVersions(); got != 2 {
		t.Fatalf("tracked after sweep want 2 got %d", got)
	}
	if delivered := hub.Dispatch(mustEvent(t, 1, 3, constants.EventActionOccupied, 1)); delivered != 0 {
		t.Fatalf("recently seen resource must keep its version gate")
	}
}

func TestHubNonBlockingWhenBufferFull(t *testing.T) {
	hub := NewHub(1)
	slow := hub.Subscribe(1, nil)
	fast := hub.Subscribe(1, nil)
	defer slow.Close()
	defer fast.Close()

	hub.Dispatch(mustEvent(t, 1, 1, constants.EventActionCreated, 1))
	<-fast.Events()
	hub.Dispatch(mustEvent(t, 1, 2, constants.EventActionCreated, 1))

	if slow.Dropped() != 1 {
		t.Fatalf("slow subscriber dropped want 1 got %d", slow.Dropped())
	}
	if fast.Dropped() != 0 {
		t.Fatalf("fast subscriber should not drop, got %d", fast.Dropped())
	}
	event := <-fast.Events()
	if event.ResourceID != 2 {
		t.Fatalf("fast subscriber should receive second event, got %d", event.ResourceID)
	}
}

func TestHubFilterAndClose(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe(1, func(event Event) bool {
		return event.ResourceID == 9
	})
	hub.Dispatch(mustEvent(t, 1, 8, constants.EventActionCreated, 1))
	hub.Dispatch(mustEvent(t, 1, 9, constants.EventActionCreated, 1))
	if len(sub.Events()) != 1 {
		t.Fatalf("filter should keep only resource 9, buffered=%d", len(sub.Events()))
	}

	sub.Close()
	sub.Close()
	if hub.SubscriberCount(1) != 0 {
		t.Fatalf("subscription should be removed")
	}
	<-sub.Events()
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("events channel should be closed")
	}
}

type failingRelay struct {
	published int
}

func (r *failingRelay) Publish(context.Context, Event) error {
	r.published++
	return errors.New("relay down")
}

func (r *failingRelay) Run(ctx context.Context, _ func(Event)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *failingRelay) Close() error { return nil }

type recordingSink struct {
	events []Event
}

func (s *recordingSink) Export(_ context.Context, event Event) {
	s.events = append(s.events, event)
}

func (s *recordingSink) Close() error { return nil }

func TestBusFallsBackToLocalDispatchWhenRelayFails(t *testing.T) {
	hub := NewHub(4)
	relay := &failingRelay{}
	sink := &recordingSink{}
	bus := NewBus(hub, WithRelay(relay), WithSink(sink))
	sub := hub.Subscribe(1, nil)
	defer sub.Close()

	bus.Publish(context.Background(), mustEvent(t, 1, 3, constants.EventActionCreated, 1))

	if relay.published != 1 {
		t.Fatalf("relay publish should be attempted once, got %d", relay.published)
	}
	if len(sink.events) != 1 {
		t.Fatalf("sink should receive event, got %d", len(sink.events))
	}
	if len(sub.Events()) != 1 {
		t.Fatalf("local subscriber should receive event after relay failure")
	}
}

func TestBusStartStopsOnContextCancel(t *testing.T) {
	bus := NewBus(NewHub(1), WithRelay(&failingRelay{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bus.Start(ctx); err != nil {
		t.Fatalf("start should return nil on cancel, got %v", err)
	}
	if err := bus.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestParseKafkaBrokers(t *testing.T) {
	brokers := ParseKafkaBrokers(" a:9092, ,b:9092 ")
	if len(brokers) != 2 || brokers[0] != "a:9092" || brokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", brokers)
	}
}
