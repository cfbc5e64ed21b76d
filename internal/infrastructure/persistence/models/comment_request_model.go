package models

import (
	"time"

	"gorm.io/gorm"
)

// CommentRequestModel is the database row for one user's comment invitation.
// The composite unique index backs up the lookup-before-insert uniqueness
// check on (content request, target user).
type CommentRequestModel struct {
	ID               string `gorm:"primaryKey;size:64"`
	LeagueID         string `gorm:"index;size:64;not null"`
	ContentType      string `gorm:"size:64"`
	ContentRequestID string `gorm:"size:64;not null;index;uniqueIndex:uniq_content_user"`
	TargetUserID     string `gorm:"size:64;not null;uniqueIndex:uniq_content_user"`

	Status            string `gorm:"index;size:32;not null"`
	ConversationState string `gorm:"size:32;not null"`
	AutoEnd           string `gorm:"type:text"` // JSON encoded AutoEndCriteria
	Priority          int
	EndReason         string `gorm:"size:64"`

	ScheduledSendTime time.Time
	ExpirationTime    time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (CommentRequestModel) TableName() string {
	return "comment_requests"
}
