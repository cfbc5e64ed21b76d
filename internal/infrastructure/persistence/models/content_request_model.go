package models

import (
	"time"

	"gorm.io/gorm"
)

// ContentRequestModel is the database row for an article-generation job.
// Nested metadata is stored JSON-encoded; the transient prepared payload gets
// its own text column so clearing it on publish is a single field update.
type ContentRequestModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	LeagueID    string `gorm:"index;size:64;not null"`
	SeasonID    string `gorm:"size:64"`
	ContentType string `gorm:"size:64;not null"`
	Persona     string `gorm:"size:64"`

	Status  string `gorm:"index;size:32;not null"`
	Title   string `gorm:"size:255"`
	Body    string `gorm:"type:text"`
	Summary string `gorm:"size:512"`

	Metadata      string `gorm:"type:text"` // JSON encoded ContentMetadata
	CustomContext string `gorm:"type:text"`
	PreparedData  string `gorm:"type:text"` // JSON payload cached between steps

	RetryCount int
	FailCode   string `gorm:"size:64"`
	FailReason string `gorm:"type:text"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (ContentRequestModel) TableName() string {
	return "content_requests"
}
