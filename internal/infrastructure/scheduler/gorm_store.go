package scheduler

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/leaguedesk/leaguedesk/internal/infrastructure/persistence/models"
)

// GormStore persists tasks in the scheduled_tasks table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, task *Task) error {
	model := taskToModel(task)
	return s.db.WithContext(ctx).Create(model).Error
}

// ClaimDue selects due pending rows and flips each to running with a
// conditional update. A row another poller claimed first yields zero affected
// rows and is skipped, so no task runs twice for one due time.
func (s *GormStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Task, error) {
	var rows []models.ScheduledTaskModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND run_at <= ?", string(TaskStatusPending), now).
		Order("run_at asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]*Task, 0, len(rows))
	for i := range rows {
		res := s.db.WithContext(ctx).
			Model(&models.ScheduledTaskModel{}).
			Where("id = ? AND status = ?", rows[i].ID, string(TaskStatusPending)).
			Updates(map[string]any{
				"status":     string(TaskStatusRunning),
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		task := modelToTask(&rows[i])
		task.Status = TaskStatusRunning
		task.Attempts++
		claimed = append(claimed, task)
	}
	return claimed, nil
}

func (s *GormStore) MarkDone(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&models.ScheduledTaskModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(TaskStatusDone),
			"last_error": "",
		}).Error
}

func (s *GormStore) MarkFailed(ctx context.Context, id string, lastError string) error {
	return s.db.WithContext(ctx).
		Model(&models.ScheduledTaskModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(TaskStatusFailed),
			"last_error": lastError,
		}).Error
}

func (s *GormStore) Reschedule(ctx context.Context, id string, runAt time.Time, lastError string) error {
	return s.db.WithContext(ctx).
		Model(&models.ScheduledTaskModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(TaskStatusPending),
			"run_at":     runAt,
			"last_error": lastError,
		}).Error
}

func (s *GormStore) Cancel(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(TaskStatusPending)).
		Delete(&models.ScheduledTaskModel{}).Error
}

func taskToModel(task *Task) *models.ScheduledTaskModel {
	return &models.ScheduledTaskModel{
		ID:          task.ID,
		Kind:        task.Kind,
		Payload:     string(task.Payload),
		RunAt:       task.RunAt,
		Status:      string(task.Status),
		Attempts:    task.Attempts,
		MaxAttempts: task.MaxAttempts,
		LastError:   task.LastError,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func modelToTask(model *models.ScheduledTaskModel) *Task {
	return &Task{
		ID:          model.ID,
		Kind:        model.Kind,
		Payload:     []byte(model.Payload),
		RunAt:       model.RunAt,
		Status:      TaskStatus(model.Status),
		Attempts:    model.Attempts,
		MaxAttempts: model.MaxAttempts,
		LastError:   model.LastError,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
