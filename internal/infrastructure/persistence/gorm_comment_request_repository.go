package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/persistence/models"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// GormCommentRequestRepository is the GORM-backed comment invitation store.
type GormCommentRequestRepository struct {
	db *gorm.DB
}

// NewGormCommentRequestRepository creates the repository.
func NewGormCommentRequestRepository(db *gorm.DB) repository.CommentRequestRepository {
	return &GormCommentRequestRepository{db: db}
}

func (r *GormCommentRequestRepository) Save(ctx context.Context, req *entity.CommentRequest) error {
	model, err := commentRequestToModel(req)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalErrorWithCause("failed to save comment request", err)
	}
	return nil
}

func (r *GormCommentRequestRepository) FindByID(ctx context.Context, id string) (*entity.CommentRequest, error) {
	var model models.CommentRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("comment request not found")
		}
		return nil, domainErrors.NewInternalErrorWithCause("failed to find comment request", err)
	}
	return commentRequestToEntity(&model)
}

func (r *GormCommentRequestRepository) FindByContentAndUser(ctx context.Context, contentRequestID, userID string) (*entity.CommentRequest, error) {
	var model models.CommentRequestModel
	err := r.db.WithContext(ctx).
		First(&model, "content_request_id = ? AND target_user_id = ?", contentRequestID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("comment request not found")
		}
		return nil, domainErrors.NewInternalErrorWithCause("failed to find comment request", err)
	}
	return commentRequestToEntity(&model)
}

func (r *GormCommentRequestRepository) FindPendingByContent(ctx context.Context, contentRequestID string) ([]*entity.CommentRequest, error) {
	var rows []models.CommentRequestModel
	err := r.db.WithContext(ctx).
		Where("content_request_id = ? AND status = ?", contentRequestID, string(entity.CommentStatusPending)).
		Order("priority desc, created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalErrorWithCause("failed to list pending comment requests", err)
	}

	out := make([]*entity.CommentRequest, 0, len(rows))
	for i := range rows {
		req, err := commentRequestToEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// Conversion helpers

func commentRequestToModel(req *entity.CommentRequest) (*models.CommentRequestModel, error) {
	criteria, err := json.Marshal(req.AutoEnd)
	if err != nil {
		return nil, domainErrors.NewInternalErrorWithCause("failed to marshal auto-end criteria", err)
	}

	return &models.CommentRequestModel{
		ID:                req.ID,
		LeagueID:          req.LeagueID,
		ContentType:       req.ContentType,
		ContentRequestID:  req.ContentRequestID,
		TargetUserID:      req.TargetUserID,
		Status:            string(req.Status),
		ConversationState: string(req.ConversationState),
		AutoEnd:           string(criteria),
		Priority:          req.Priority,
		EndReason:         req.EndReason,
		ScheduledSendTime: req.ScheduledSendTime,
		ExpirationTime:    req.ExpirationTime,
		CreatedAt:         req.CreatedAt,
		UpdatedAt:         req.UpdatedAt,
	}, nil
}

func commentRequestToEntity(model *models.CommentRequestModel) (*entity.CommentRequest, error) {
	var criteria entity.AutoEndCriteria
	if model.AutoEnd != "" {
		if err := json.Unmarshal([]byte(model.AutoEnd), &criteria); err != nil {
			criteria = entity.AutoEndCriteria{}
		}
	}

	return &entity.CommentRequest{
		ID:                model.ID,
		LeagueID:          model.LeagueID,
		ContentType:       model.ContentType,
		ContentRequestID:  model.ContentRequestID,
		TargetUserID:      model.TargetUserID,
		Status:            entity.CommentStatus(model.Status),
		ConversationState: entity.ConversationState(model.ConversationState),
		AutoEnd:           criteria,
		Priority:          model.Priority,
		EndReason:         model.EndReason,
		ScheduledSendTime: model.ScheduledSendTime,
		ExpirationTime:    model.ExpirationTime,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}, nil
}
