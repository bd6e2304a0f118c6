package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/comanda-next/internal/logger"
)

const (
	defaultSubscriberBuffer = 64
	// 超过该时长没有新事件的资源不再记录版本
	versionRetention = 10 * time.Minute
)

type versionKey struct {
	tenantID     uint
	resourceType string
	resourceID   uint
}

type versionMark struct {
	version uint64
	seen    time.Time
}

// Hub 进程内按租户分发事件
//
// 每个订阅者有独立的有界缓冲，写满即丢弃（至多一次）。
// 同一资源的旧版本事件会被丢弃，订阅者不会看到资源回退。
type Hub struct {
	mu          sync.Mutex
	subscribers map[uint]map[*Subscription]struct{}
	versions    map[versionKey]versionMark
	buffer      int
	retention   time.Duration
	lastSweep   time.Time
	now         func() time.Time
}

// NewHub 创建 Hub
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subscribers: make(map[uint]map[*Subscription]struct{}),
		versions:    make(map[versionKey]versionMark),
		buffer:      buffer,
		retention:   versionRetention,
		now:         time.Now,
	}
}

// Subscription 单个订阅
type Subscription struct {
	TenantID uint

	hub     *Hub
	filter  func(Event) bool
	ch      chan Event
	once    sync.Once
	dropped atomic.Uint64
}

// Events 事件通道，订阅关闭后通道关闭
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped 因缓冲已满被丢弃的事件数
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close 取消订阅
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Subscribe 订阅租户事件，filter 为空表示接收全部
func (h *Hub) Subscribe(tenantID uint, filter func(Event) bool) *Subscription {
	sub := &Subscription{
		TenantID: tenantID,
		hub:      h,
		filter:   filter,
		ch:       make(chan Event, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[tenantID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subscribers[tenantID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subscribers[sub.TenantID]; ok {
		if _, exists := set[sub]; exists {
			delete(set, sub)
			close(sub.ch)
		}
		if len(set) == 0 {
			delete(h.subscribers, sub.TenantID)
		}
	}
}

// SubscriberCount 租户当前订阅数
func (h *Hub) SubscriberCount(tenantID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[tenantID])
}

// Dispatch 分发事件，返回成功投递的订阅数
func (h *Hub) Dispatch(event Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.sweepVersions(now)
	if event.Version > 0 {
		key := versionKey{tenantID: event.TenantID, resourceType: event.ResourceType, resourceID: event.ResourceID}
		if last, ok := h.versions[key]; ok && event.Version <= last.version {
			logger.Debugw("realtime_stale_event_dropped",
				"tenant_id", event.TenantID,
				"event", event.Name(),
				"resource_id", event.ResourceID,
				"version", event.Version,
				"last_version", last.version,
			)
			return 0
		}
		h.versions[key] = versionMark{version: event.Version, seen: now}
	}

	delivered := 0
	for sub := range h.subscribers[event.TenantID] {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		select {
		case sub.ch <- event:
			delivered++
		default:
			sub.dropped.Add(1)
			logger.Warnw("realtime_subscriber_buffer_full",
				"tenant_id", event.TenantID,
				"event", event.Name(),
				"resource_id", event.ResourceID,
			)
		}
	}
	return delivered
}

// sweepVersions 每半个保留周期清理一次长时间无事件的资源版本
func (h *Hub) sweepVersions(now time.Time) {
	if now.Sub(h.lastSweep) < h.retention/2 {
		return
	}
	h.lastSweep = now
	for key, mark := range h.versions {
		if now.Sub(mark.seen) > h.retention {
			delete(h.versions, key)
		}
	}
}

// TrackedVersions 当前记录版本的资源数
func (h *Hub) TrackedVersions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.versions)
}
