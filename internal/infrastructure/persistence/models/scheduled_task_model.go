package models

import (
	"time"
)

// ScheduledTaskModel is the durable record of one delayed function call.
// The poller claims due rows with a conditional update, so a task is executed
// at least once even across process restarts.
type ScheduledTaskModel struct {
	ID      string `gorm:"primaryKey;size:64"`
	Kind    string `gorm:"index;size:64;not null"`
	Payload string `gorm:"type:text"` // JSON encoded handler payload

	RunAt       time.Time `gorm:"index;not null"`
	Status      string    `gorm:"index;size:16;not null"` // pending, running, done, failed
	Attempts    int
	MaxAttempts int
	LastError   string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ScheduledTaskModel) TableName() string {
	return "scheduled_tasks"
}
