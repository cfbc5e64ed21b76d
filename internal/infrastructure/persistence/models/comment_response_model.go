package models

import (
	"time"
)

// CommentResponseModel is the database row for a finished conversation's
// aggregate. One per comment request, created at conversation end.
type CommentResponseModel struct {
	ID               string `gorm:"primaryKey;size:64"`
	CommentRequestID string `gorm:"uniqueIndex;size:64;not null"`
	ContentRequestID string `gorm:"index;size:64;not null"`
	LeagueID         string `gorm:"index;size:64"`
	UserID           string `gorm:"size:64"`

	RawResponse       string `gorm:"type:text"`
	ProcessedResponse string `gorm:"type:text"`
	ResponseType      string `gorm:"size:32"`
	Relevance         string `gorm:"type:text"` // JSON encoded RelevanceMetadata
	EngagementLevel   string `gorm:"size:16"`
	IntegrationStatus string `gorm:"index;size:32"`

	CreatedAt time.Time
}

func (CommentResponseModel) TableName() string {
	return "comment_responses"
}
