package repository

import (
	"context"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
)

// CommentRequestRepository persists comment invitations.
type CommentRequestRepository interface {
	// Save creates or updates a comment request.
	Save(ctx context.Context, req *entity.CommentRequest) error

	// FindByID loads a comment request by id.
	FindByID(ctx context.Context, id string) (*entity.CommentRequest, error)

	// FindByContentAndUser enforces the one-request-per-(content, user)
	// uniqueness check before insert. Returns a NotFound error when absent.
	FindByContentAndUser(ctx context.Context, contentRequestID, userID string) (*entity.CommentRequest, error)

	// FindPendingByContent lists still-pending requests for a content job.
	FindPendingByContent(ctx context.Context, contentRequestID string) ([]*entity.CommentRequest, error)
}

// ConversationMessageRepository persists dialogue turns.
type ConversationMessageRepository interface {
	// Append inserts a message and bumps the owning request's message count
	// in the same atomic step, assigning the next messageOrder from the
	// persisted count. Returns the stored message with its order set.
	Append(ctx context.Context, req *entity.CommentRequest, msg *entity.ConversationMessage) error

	// AttachAnalysis updates a user message with its analysis. The only
	// permitted post-creation mutation.
	AttachAnalysis(ctx context.Context, msg *entity.ConversationMessage) error

	// FindByCommentRequest returns all turns ordered by messageOrder.
	FindByCommentRequest(ctx context.Context, commentRequestID string) ([]*entity.ConversationMessage, error)

	// Count returns the number of persisted turns for a request.
	Count(ctx context.Context, commentRequestID string) (int64, error)
}

// CommentResponseRepository persists conversation aggregates.
type CommentResponseRepository interface {
	// Save creates or updates a comment response.
	Save(ctx context.Context, resp *entity.CommentResponse) error

	// FindByCommentRequest loads the single aggregate for a conversation.
	FindByCommentRequest(ctx context.Context, commentRequestID string) (*entity.CommentResponse, error)

	// FindPendingByContent lists responses for a content job that have not
	// been consumed by generation yet.
	FindPendingByContent(ctx context.Context, contentRequestID string) ([]*entity.CommentResponse, error)
}
