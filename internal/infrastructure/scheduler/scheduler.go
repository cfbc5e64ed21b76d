package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/pkg/safego"
)

// Handler executes one task kind. The payload is whatever the scheduling call
// passed, JSON encoded. Returning an error consumes one attempt; when the
// attempt ceiling is hit the task is parked as failed.
type Handler func(ctx context.Context, payload []byte) error

// Options tunes the scheduler.
type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	BatchSize    int
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 16
	}
	return o
}

// Scheduler runs durable delayed function calls. Tasks live in the store, so
// a pending task survives a process restart and fires on the next poll after
// its due time. Execution is at least once: handlers must tolerate a rerun.
type Scheduler struct {
	store  Store
	logger *zap.Logger
	opts   Options

	mu       sync.RWMutex
	handlers map[string]Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler over the given store.
func New(store Store, logger *zap.Logger, opts Options) *Scheduler {
	return &Scheduler{
		store:    store,
		logger:   logger,
		opts:     opts.withDefaults(),
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a task kind. Must be called before Start;
// a claimed task with no handler is parked as failed.
func (s *Scheduler) Register(kind string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = handler
}

// Schedule persists a task due at runAt. The payload is JSON encoded.
func (s *Scheduler) Schedule(ctx context.Context, kind string, payload any, runAt time.Time) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode task payload: %w", err)
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     encoded,
		RunAt:       runAt.UTC(),
		Status:      TaskStatusPending,
		MaxAttempts: s.opts.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return "", fmt.Errorf("failed to persist task: %w", err)
	}
	return task.ID, nil
}

// ScheduleAfter persists a task due after the given delay.
func (s *Scheduler) ScheduleAfter(ctx context.Context, kind string, payload any, delay time.Duration) (string, error) {
	return s.Schedule(ctx, kind, payload, time.Now().Add(delay))
}

// Cancel removes a still-pending task.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	return s.store.Cancel(ctx, id)
}

// Start launches the poll loop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	safego.Go(s.logger, "scheduler.poll", func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.RunDue(ctx, now)
			}
		}
	})
}

// Stop halts polling and waits for in-flight handlers.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunDue claims and executes every task due at now. Exposed so tests and the
// CLI drain mode can drive the scheduler synchronously without the ticker.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) {
	for {
		tasks, err := s.store.ClaimDue(ctx, now, s.opts.BatchSize)
		if err != nil {
			s.logger.Error("Failed to claim due tasks", zap.Error(err))
			return
		}
		if len(tasks) == 0 {
			return
		}
		for _, task := range tasks {
			s.execute(ctx, task, now)
		}
		if len(tasks) < s.opts.BatchSize {
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, task *Task, now time.Time) {
	s.mu.RLock()
	handler, ok := s.handlers[task.Kind]
	s.mu.RUnlock()

	if !ok {
		s.logger.Error("No handler for task kind",
			zap.String("task_id", task.ID),
			zap.String("kind", task.Kind),
		)
		if err := s.store.MarkFailed(ctx, task.ID, "no handler registered for kind "+task.Kind); err != nil {
			s.logger.Error("Failed to park task", zap.String("task_id", task.ID), zap.Error(err))
		}
		return
	}

	err := safego.Run(s.logger, "task."+task.Kind, func() error {
		return handler(ctx, task.Payload)
	})
	if err == nil {
		if markErr := s.store.MarkDone(ctx, task.ID); markErr != nil {
			s.logger.Error("Failed to mark task done", zap.String("task_id", task.ID), zap.Error(markErr))
		}
		return
	}

	s.logger.Warn("Task attempt failed",
		zap.String("task_id", task.ID),
		zap.String("kind", task.Kind),
		zap.Int("attempt", task.Attempts),
		zap.Int("max_attempts", task.MaxAttempts),
		zap.Error(err),
	)

	if task.Attempts >= task.MaxAttempts {
		if markErr := s.store.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
			s.logger.Error("Failed to park task", zap.String("task_id", task.ID), zap.Error(markErr))
		}
		return
	}

	retryAt := now.Add(backoff(task.Attempts))
	if reschedErr := s.store.Reschedule(ctx, task.ID, retryAt, err.Error()); reschedErr != nil {
		s.logger.Error("Failed to reschedule task", zap.String("task_id", task.ID), zap.Error(reschedErr))
	}
}

// backoff doubles per attempt: 30s, 1m, 2m, 4m, capped at 10m.
func backoff(attempt int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return d
}
