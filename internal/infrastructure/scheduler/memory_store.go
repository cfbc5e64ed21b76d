package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// MemoryStore is an in-memory task store for tests and dev mode. Claim
// semantics match the database store: a claimed row is moved to running under
// the lock and cannot be claimed again.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewMemoryStore creates the store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*Task)}
}

func (s *MemoryStore) Create(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *task
	s.tasks[task.ID] = &copy
	return nil
}

func (s *MemoryStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Task
	for _, task := range s.tasks {
		if task.Status == TaskStatusPending && !task.RunAt.After(now) {
			due = append(due, task)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*Task, 0, len(due))
	for _, task := range due {
		task.Status = TaskStatusRunning
		task.Attempts++
		task.UpdatedAt = now
		copy := *task
		claimed = append(claimed, &copy)
	}
	return claimed, nil
}

func (s *MemoryStore) MarkDone(ctx context.Context, id string) error {
	return s.update(id, func(task *Task) {
		task.Status = TaskStatusDone
		task.LastError = ""
	})
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id string, lastError string) error {
	return s.update(id, func(task *Task) {
		task.Status = TaskStatusFailed
		task.LastError = lastError
	})
}

func (s *MemoryStore) Reschedule(ctx context.Context, id string, runAt time.Time, lastError string) error {
	return s.update(id, func(task *Task) {
		task.Status = TaskStatusPending
		task.RunAt = runAt
		task.LastError = lastError
	})
}

func (s *MemoryStore) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok && task.Status == TaskStatusPending {
		delete(s.tasks, id)
	}
	return nil
}

// Get returns a snapshot of one task. Test helper.
func (s *MemoryStore) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

func (s *MemoryStore) update(id string, fn func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return domainErrors.NewNotFoundError("task not found")
	}
	fn(task)
	task.UpdatedAt = time.Now().UTC()
	return nil
}
