package entity

import (
	"time"
)

// CommentStatus is the request-level lifecycle of a comment invitation.
type CommentStatus string

const (
	CommentStatusPending   CommentStatus = "pending"
	CommentStatusActive    CommentStatus = "active"
	CommentStatusCompleted CommentStatus = "completed"
	CommentStatusExpired   CommentStatus = "expired"
	CommentStatusDeclined  CommentStatus = "declined"
	CommentStatusCancelled CommentStatus = "cancelled"
)

// ConversationState is the fine-grained dialogue phase, distinct from the
// coarse CommentStatus. "Waiting for the user" is a first-class state here,
// not an inference from scheduler internals.
type ConversationState string

const (
	ConvStateNotStarted         ConversationState = "not_started"
	ConvStateInitialRequestSent ConversationState = "initial_request_sent"
	ConvStateGatheringDetails   ConversationState = "gathering_details"
	ConvStateFollowUpNeeded     ConversationState = "follow_up_needed"
	ConvStateResponseComplete   ConversationState = "response_complete"
	ConvStateAutoEnded          ConversationState = "auto_ended"
)

// IsTerminal reports whether the dialogue admits no further turns. Every
// mutating task must check this before acting so that a late expiration task
// and a late reply-processing task cannot double-finalize.
func (s ConversationState) IsTerminal() bool {
	return s == ConvStateResponseComplete || s == ConvStateAutoEnded
}

// AutoEndCriteria is the mutable termination policy carried on the request.
// CurrentMessageCount is the single source of truth the continuation policy
// consults; it must always equal the number of persisted messages.
type AutoEndCriteria struct {
	MaxMessages              int        `json:"max_messages"`
	CurrentMessageCount      int        `json:"current_message_count"`
	MinResponseLength        int        `json:"min_response_length"`
	LastActivityTime         *time.Time `json:"last_activity_time,omitempty"`
	InactivityTimeoutMinutes int        `json:"inactivity_timeout_minutes"`
}

// CommentRequest is one user's invitation to a pre-generation conversation
// for a given content request. At most one exists per
// (content request, target user) pair.
type CommentRequest struct {
	ID               string
	LeagueID         string
	ContentType      string
	ContentRequestID string
	TargetUserID     string

	Status            CommentStatus
	ConversationState ConversationState
	AutoEnd           AutoEndCriteria
	Priority          int

	ScheduledSendTime time.Time
	ExpirationTime    time.Time
	EndReason         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCommentRequest creates an invitation in pending/not_started.
func NewCommentRequest(id, leagueID, contentType, contentRequestID, targetUserID string, sendAt, expireAt time.Time, criteria AutoEndCriteria) (*CommentRequest, error) {
	if id == "" {
		return nil, ErrInvalidCommentRequestID
	}
	if contentRequestID == "" {
		return nil, ErrInvalidContentRequestID
	}
	if targetUserID == "" {
		return nil, ErrInvalidUserID
	}

	now := time.Now()
	return &CommentRequest{
		ID:                id,
		LeagueID:          leagueID,
		ContentType:       contentType,
		ContentRequestID:  contentRequestID,
		TargetUserID:      targetUserID,
		Status:            CommentStatusPending,
		ConversationState: ConvStateNotStarted,
		AutoEnd:           criteria,
		ScheduledSendTime: sendAt,
		ExpirationTime:    expireAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// RecordActivity bumps the message count and activity clock. Called inside
// the same store step that persists the message, keeping the count invariant.
func (r *CommentRequest) RecordActivity(now time.Time) {
	r.AutoEnd.CurrentMessageCount++
	r.AutoEnd.LastActivityTime = &now
	r.UpdatedAt = now
}
