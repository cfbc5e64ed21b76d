package models

import (
	"time"
)

// ConversationMessageModel is the database row for one dialogue turn.
// The unique index on (comment_request_id, message_order) makes order
// collisions a constraint violation instead of silent corruption when a
// retried task races the original.
type ConversationMessageModel struct {
	ID               string `gorm:"primaryKey;size:64"`
	CommentRequestID string `gorm:"size:64;not null;index;uniqueIndex:uniq_request_order"`
	MessageOrder     int    `gorm:"not null;uniqueIndex:uniq_request_order"`
	MessageType      string `gorm:"size:32;not null"`
	Content          string `gorm:"type:text;not null"`

	Analysis   string `gorm:"type:text"` // JSON encoded MessageAnalysis, user turns only
	Generation string `gorm:"type:text"` // JSON encoded GenerationMeta, AI turns only

	CreatedAt time.Time
}

func (ConversationMessageModel) TableName() string {
	return "conversation_messages"
}
