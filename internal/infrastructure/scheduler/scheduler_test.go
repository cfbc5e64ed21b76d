package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type echoPayload struct {
	Value string `json:"value"`
}

func newTestScheduler(store Store) *Scheduler {
	return New(store, zap.NewNop(), Options{MaxAttempts: 3, BatchSize: 8})
}

func TestScheduleAndRunDue(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScheduler(store)

	var got string
	s.Register("echo", func(ctx context.Context, payload []byte) error {
		var p echoPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		got = p.Value
		return nil
	})

	runAt := time.Now().Add(time.Minute)
	id, err := s.Schedule(context.Background(), "echo", echoPayload{Value: "hello"}, runAt)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	// Not due yet.
	s.RunDue(context.Background(), time.Now())
	if got != "" {
		t.Fatal("task ran before its due time")
	}

	s.RunDue(context.Background(), runAt.Add(time.Second))
	if got != "hello" {
		t.Fatalf("payload = %q, want %q", got, "hello")
	}

	task, ok := store.Get(id)
	if !ok {
		t.Fatal("task row disappeared")
	}
	if task.Status != TaskStatusDone {
		t.Fatalf("status = %q, want %q", task.Status, TaskStatusDone)
	}
	if task.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", task.Attempts)
	}
}

func TestFailedAttemptIsRescheduledWithBackoff(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScheduler(store)

	calls := 0
	s.Register("flaky", func(ctx context.Context, payload []byte) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	now := time.Now()
	id, err := s.Schedule(context.Background(), "flaky", nil, now)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	s.RunDue(context.Background(), now)
	task, _ := store.Get(id)
	if task.Status != TaskStatusPending {
		t.Fatalf("status after failed attempt = %q, want pending", task.Status)
	}
	if !task.RunAt.After(now) {
		t.Fatal("failed attempt did not push the due time forward")
	}
	if task.LastError != "transient" {
		t.Fatalf("last error = %q", task.LastError)
	}

	s.RunDue(context.Background(), task.RunAt.Add(time.Second))
	task, _ = store.Get(id)
	if task.Status != TaskStatusDone {
		t.Fatalf("status = %q, want done", task.Status)
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestTaskParkedAfterMaxAttempts(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScheduler(store)

	calls := 0
	s.Register("broken", func(ctx context.Context, payload []byte) error {
		calls++
		return errors.New("permanent")
	})

	now := time.Now()
	id, _ := s.Schedule(context.Background(), "broken", nil, now)

	at := now
	for i := 0; i < 5; i++ {
		s.RunDue(context.Background(), at)
		task, _ := store.Get(id)
		if task.Status == TaskStatusFailed {
			break
		}
		at = task.RunAt.Add(time.Second)
	}

	task, _ := store.Get(id)
	if task.Status != TaskStatusFailed {
		t.Fatalf("status = %q, want failed", task.Status)
	}
	if calls != 3 {
		t.Fatalf("handler calls = %d, want 3", calls)
	}
	if task.LastError != "permanent" {
		t.Fatalf("last error = %q", task.LastError)
	}
}

func TestPanickingHandlerConsumesAttempt(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScheduler(store)

	s.Register("panicky", func(ctx context.Context, payload []byte) error {
		panic("boom")
	})

	now := time.Now()
	id, _ := s.Schedule(context.Background(), "panicky", nil, now)

	s.RunDue(context.Background(), now)
	task, _ := store.Get(id)
	if task.Status != TaskStatusPending {
		t.Fatalf("status = %q, want pending", task.Status)
	}
	if task.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", task.Attempts)
	}
}

func TestUnknownKindIsParked(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScheduler(store)

	now := time.Now()
	id, _ := s.Schedule(context.Background(), "unregistered", nil, now)

	s.RunDue(context.Background(), now)
	task, _ := store.Get(id)
	if task.Status != TaskStatusFailed {
		t.Fatalf("status = %q, want failed", task.Status)
	}
}

func TestCancelPendingTask(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScheduler(store)

	ran := false
	s.Register("noop", func(ctx context.Context, payload []byte) error {
		ran = true
		return nil
	})

	now := time.Now()
	id, _ := s.Schedule(context.Background(), "noop", nil, now)
	if err := s.Cancel(context.Background(), id); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	s.RunDue(context.Background(), now.Add(time.Second))
	if ran {
		t.Fatal("cancelled task still ran")
	}
}

func TestBackoffDoubles(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{6, 10 * time.Minute},
		{10, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := backoff(tc.attempt); got != tc.want {
			t.Errorf("backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
