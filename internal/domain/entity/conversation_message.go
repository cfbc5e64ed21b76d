package entity

import (
	"time"

	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
)

// MessageType distinguishes who produced a conversation turn and why.
type MessageType string

const (
	MessageTypeUserResponse   MessageType = "user_response"
	MessageTypeAIQuestion     MessageType = "ai_question"
	MessageTypeAIFollowUp     MessageType = "ai_follow_up"
	MessageTypeAIConfirmation MessageType = "ai_confirmation"
	MessageTypeSystem         MessageType = "system_message"
)

// GenerationMeta records how an AI turn was produced.
type GenerationMeta struct {
	ModelID    string  `json:"model_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Intent     string  `json:"intent,omitempty"`
}

// ConversationMessage is one turn in a comment-request dialogue. Messages are
// exclusively owned by their CommentRequest and never mutated after creation,
// except to attach analysis to a user turn.
type ConversationMessage struct {
	ID               string
	CommentRequestID string
	MessageOrder     int
	MessageType      MessageType
	Content          string

	Analysis   *valueobject.MessageAnalysis
	Generation *GenerationMeta

	CreatedAt time.Time
}

// NewConversationMessage creates a turn at the given order. Order assignment
// is the caller's job: it must be computed from the persisted count inside
// the same store step that inserts the message.
func NewConversationMessage(id, commentRequestID string, order int, msgType MessageType, content string) (*ConversationMessage, error) {
	if id == "" {
		return nil, ErrInvalidMessageID
	}
	if commentRequestID == "" {
		return nil, ErrInvalidCommentRequestID
	}
	if order < 0 {
		return nil, ErrInvalidMessageOrder
	}

	return &ConversationMessage{
		ID:               id,
		CommentRequestID: commentRequestID,
		MessageOrder:     order,
		MessageType:      msgType,
		Content:          content,
		CreatedAt:        time.Now(),
	}, nil
}

// AttachAnalysis sets the analysis on a user turn. Only user responses carry
// analysis.
func (m *ConversationMessage) AttachAnalysis(a valueobject.MessageAnalysis) error {
	if m.MessageType != MessageTypeUserResponse {
		return ErrAnalysisOnNonUserMessage
	}
	m.Analysis = &a
	return nil
}
