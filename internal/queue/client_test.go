package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/comanda-next/internal/config"
	"github.com/comanda-next/internal/constants"

	"github.com/hibiken/asynq"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueResponderNotify(ResponderNotifyPayload{TenantID: 1, OrderID: 2, Status: "ready"}); err != nil {
		t.Fatalf("disabled enqueue should be no-op, got %v", err)
	}
	if err := client.EnqueueOrderConfirmTimeout(OrderConfirmTimeoutPayload{TenantID: 1, OrderID: 2}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue should be no-op, got %v", err)
	}
	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatalf("nil client should be disabled")
	}
}

func TestNewResponderNotifyTaskPayload(t *testing.T) {
	task, err := NewResponderNotifyTask(ResponderNotifyPayload{TenantID: 3, OrderID: 9, Status: "out_for_delivery", RouteID: 4})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskOrderResponderNotify {
		t.Fatalf("task type want %s got %s", TaskOrderResponderNotify, task.Type())
	}
	var payload ResponderNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.OrderID != 9 || payload.RouteID != 4 || payload.Status != "out_for_delivery" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("default concurrency want 10 got %d", cfg.Concurrency)
	}
	if cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("default queue weight missing: %+v", cfg.Queues)
	}
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	r.opts = append(r.opts, opts)
	if r.err != nil {
		return nil, r.err
	}
	return &asynq.TaskInfo{ID: "t1"}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

func optionValue(opts []asynq.Option, kind asynq.OptionType) (interface{}, bool) {
	for _, opt := range opts {
		if opt.Type() == kind {
			return opt.Value(), true
		}
	}
	return nil, false
}

func TestEnqueueOrderConfirmTimeoutUsesCriticalQueueAndTaskID(t *testing.T) {
	rec := &recordingEnqueuer{}
	client := &Client{inner: rec}

	if err := client.EnqueueOrderConfirmTimeout(OrderConfirmTimeoutPayload{TenantID: 1, OrderID: 77}, -time.Second); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if len(rec.tasks) != 1 || rec.tasks[0].Type() != TaskOrderConfirmTimeout {
		t.Fatalf("unexpected tasks: %+v", rec.tasks)
	}
	if queueName, _ := optionValue(rec.opts[0], asynq.QueueOpt); queueName != constants.QueueCritical {
		t.Fatalf("queue want %s got %v", constants.QueueCritical, queueName)
	}
	if delay, _ := optionValue(rec.opts[0], asynq.ProcessInOpt); delay != time.Duration(0) {
		t.Fatalf("negative delay should clamp to 0, got %v", delay)
	}
	if _, ok := optionValue(rec.opts[0], asynq.TaskIDOpt); !ok {
		t.Fatalf("task id option missing")
	}
}

func TestEnqueueOrderConfirmTimeoutIgnoresDuplicate(t *testing.T) {
	client := &Client{inner: &recordingEnqueuer{err: asynq.ErrTaskIDConflict}}
	if err := client.EnqueueOrderConfirmTimeout(OrderConfirmTimeoutPayload{TenantID: 1, OrderID: 77}, time.Minute); err != nil {
		t.Fatalf("duplicate task should be treated as success, got %v", err)
	}
}
