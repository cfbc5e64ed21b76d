package persistence

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/persistence/models"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// GormConversationMessageRepository is the GORM-backed dialogue turn store.
type GormConversationMessageRepository struct {
	db *gorm.DB
}

// NewGormConversationMessageRepository creates the repository.
func NewGormConversationMessageRepository(db *gorm.DB) repository.ConversationMessageRepository {
	return &GormConversationMessageRepository{db: db}
}

// Append inserts a turn with messageOrder computed from the persisted count
// inside one transaction, and bumps the owning request's counter in the same
// step. This is what keeps messageOrder gapless and currentMessageCount equal
// to the number of stored messages even when a retried task races the
// original: the unique (request, order) index turns a lost race into a
// constraint error instead of a duplicate order.
func (r *GormConversationMessageRepository) Append(ctx context.Context, req *entity.CommentRequest, msg *entity.ConversationMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ConversationMessageModel{}).
			Where("comment_request_id = ?", req.ID).
			Count(&count).Error; err != nil {
			return err
		}

		msg.MessageOrder = int(count)
		model, err := messageToModel(msg)
		if err != nil {
			return err
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		now := time.Now()
		req.AutoEnd.CurrentMessageCount = int(count) + 1
		req.AutoEnd.LastActivityTime = &now
		req.UpdatedAt = now

		criteria, err := json.Marshal(req.AutoEnd)
		if err != nil {
			return err
		}
		return tx.Model(&models.CommentRequestModel{}).
			Where("id = ?", req.ID).
			Updates(map[string]any{
				"auto_end":   string(criteria),
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return domainErrors.NewInternalErrorWithCause("failed to append conversation message", err)
	}
	return nil
}

func (r *GormConversationMessageRepository) AttachAnalysis(ctx context.Context, msg *entity.ConversationMessage) error {
	if msg.Analysis == nil {
		return domainErrors.NewInvalidInputError("message carries no analysis")
	}
	analysis, err := json.Marshal(msg.Analysis)
	if err != nil {
		return domainErrors.NewInternalErrorWithCause("failed to marshal analysis", err)
	}

	result := r.db.WithContext(ctx).Model(&models.ConversationMessageModel{}).
		Where("id = ?", msg.ID).
		Update("analysis", string(analysis))
	if result.Error != nil {
		return domainErrors.NewInternalErrorWithCause("failed to attach analysis", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("conversation message not found")
	}
	return nil
}

func (r *GormConversationMessageRepository) FindByCommentRequest(ctx context.Context, commentRequestID string) ([]*entity.ConversationMessage, error) {
	var rows []models.ConversationMessageModel
	err := r.db.WithContext(ctx).
		Where("comment_request_id = ?", commentRequestID).
		Order("message_order asc").
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalErrorWithCause("failed to list conversation messages", err)
	}

	out := make([]*entity.ConversationMessage, 0, len(rows))
	for i := range rows {
		msg, err := messageToEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *GormConversationMessageRepository) Count(ctx context.Context, commentRequestID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ConversationMessageModel{}).
		Where("comment_request_id = ?", commentRequestID).
		Count(&count).Error
	if err != nil {
		return 0, domainErrors.NewInternalErrorWithCause("failed to count conversation messages", err)
	}
	return count, nil
}

// Conversion helpers

func messageToModel(msg *entity.ConversationMessage) (*models.ConversationMessageModel, error) {
	model := &models.ConversationMessageModel{
		ID:               msg.ID,
		CommentRequestID: msg.CommentRequestID,
		MessageOrder:     msg.MessageOrder,
		MessageType:      string(msg.MessageType),
		Content:          msg.Content,
		CreatedAt:        msg.CreatedAt,
	}

	if msg.Analysis != nil {
		data, err := json.Marshal(msg.Analysis)
		if err != nil {
			return nil, domainErrors.NewInternalErrorWithCause("failed to marshal analysis", err)
		}
		model.Analysis = string(data)
	}
	if msg.Generation != nil {
		data, err := json.Marshal(msg.Generation)
		if err != nil {
			return nil, domainErrors.NewInternalErrorWithCause("failed to marshal generation meta", err)
		}
		model.Generation = string(data)
	}
	return model, nil
}

func messageToEntity(model *models.ConversationMessageModel) (*entity.ConversationMessage, error) {
	msg := &entity.ConversationMessage{
		ID:               model.ID,
		CommentRequestID: model.CommentRequestID,
		MessageOrder:     model.MessageOrder,
		MessageType:      entity.MessageType(model.MessageType),
		Content:          model.Content,
		CreatedAt:        model.CreatedAt,
	}

	if model.Analysis != "" {
		var analysis valueobject.MessageAnalysis
		if err := json.Unmarshal([]byte(model.Analysis), &analysis); err == nil {
			msg.Analysis = &analysis
		}
	}
	if model.Generation != "" {
		var gen entity.GenerationMeta
		if err := json.Unmarshal([]byte(model.Generation), &gen); err == nil {
			msg.Generation = &gen
		}
	}
	return msg, nil
}
