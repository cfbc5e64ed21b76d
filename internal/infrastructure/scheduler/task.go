package scheduler

import (
	"context"
	"time"
)

// TaskStatus is the lifecycle of a durable task row.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Task is one durable delayed function call. Payload is the JSON-encoded
// argument handed to the registered handler for Kind.
type Task struct {
	ID          string
	Kind        string
	Payload     []byte
	RunAt       time.Time
	Status      TaskStatus
	Attempts    int
	MaxAttempts int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists tasks. ClaimDue must be atomic per row: a row claimed by one
// poller is invisible to every other poller, which is what allows multiple
// process instances to share one task table.
type Store interface {
	// Create inserts a pending task.
	Create(ctx context.Context, task *Task) error

	// ClaimDue moves up to limit due pending tasks to running, incrementing
	// their attempt counter, and returns the claimed rows.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Task, error)

	// MarkDone finishes a running task.
	MarkDone(ctx context.Context, id string) error

	// MarkFailed finishes a running task that exhausted its attempts.
	MarkFailed(ctx context.Context, id string, lastError string) error

	// Reschedule returns a running task to pending with a new due time after
	// a failed attempt.
	Reschedule(ctx context.Context, id string, runAt time.Time, lastError string) error

	// Cancel deletes a pending task. Canceling a task that already ran or is
	// running is a no-op.
	Cancel(ctx context.Context, id string) error
}
