package entity

import (
	"time"

	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
)

// ResponseType is a rough classification of what the user contributed.
type ResponseType string

const (
	ResponseTypeOpinion    ResponseType = "opinion"
	ResponseTypeAnalysis   ResponseType = "analysis"
	ResponseTypePrediction ResponseType = "prediction"
	ResponseTypeStory      ResponseType = "story"
	ResponseTypeQuestion   ResponseType = "question"
	ResponseTypeMixed      ResponseType = "mixed"
)

// EngagementLevel buckets the quality proxy of a finished conversation.
type EngagementLevel string

const (
	EngagementHigh   EngagementLevel = "high"
	EngagementMedium EngagementLevel = "medium"
	EngagementLow    EngagementLevel = "low"
)

// EngagementFromQuality buckets a 0-100 quality score: high >= 70,
// medium >= 50, low otherwise.
func EngagementFromQuality(quality int) EngagementLevel {
	switch {
	case quality >= 70:
		return EngagementHigh
	case quality >= 50:
		return EngagementMedium
	default:
		return EngagementLow
	}
}

// IntegrationStatus tracks whether downstream generation has consumed the
// response yet.
type IntegrationStatus string

const (
	IntegrationPending  IntegrationStatus = "pending"
	IntegrationConsumed IntegrationStatus = "integrated"
)

// CommentResponse is the aggregate produced exactly once when a conversation
// reaches a terminal state, by folding over all user_response turns.
type CommentResponse struct {
	ID               string
	CommentRequestID string
	ContentRequestID string
	LeagueID         string
	UserID           string

	RawResponse       string
	ProcessedResponse string
	ResponseType      ResponseType
	Relevance         valueobject.RelevanceMetadata
	EngagementLevel   EngagementLevel
	IntegrationStatus IntegrationStatus

	CreatedAt time.Time
}

// NewCommentResponse creates the aggregate in integration-pending state.
func NewCommentResponse(id, commentRequestID, contentRequestID, leagueID, userID string) (*CommentResponse, error) {
	if id == "" {
		return nil, ErrInvalidCommentResponseID
	}
	if commentRequestID == "" {
		return nil, ErrInvalidCommentRequestID
	}
	return &CommentResponse{
		ID:                id,
		CommentRequestID:  commentRequestID,
		ContentRequestID:  contentRequestID,
		LeagueID:          leagueID,
		UserID:            userID,
		ResponseType:      ResponseTypeMixed,
		IntegrationStatus: IntegrationPending,
		CreatedAt:         time.Now(),
	}, nil
}
