package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/persistence/models"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// GormCommentResponseRepository is the GORM-backed conversation aggregate store.
type GormCommentResponseRepository struct {
	db *gorm.DB
}

// NewGormCommentResponseRepository creates the repository.
func NewGormCommentResponseRepository(db *gorm.DB) repository.CommentResponseRepository {
	return &GormCommentResponseRepository{db: db}
}

func (r *GormCommentResponseRepository) Save(ctx context.Context, resp *entity.CommentResponse) error {
	model, err := commentResponseToModel(resp)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalErrorWithCause("failed to save comment response", err)
	}
	return nil
}

func (r *GormCommentResponseRepository) FindByCommentRequest(ctx context.Context, commentRequestID string) (*entity.CommentResponse, error) {
	var model models.CommentResponseModel
	err := r.db.WithContext(ctx).First(&model, "comment_request_id = ?", commentRequestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("comment response not found")
		}
		return nil, domainErrors.NewInternalErrorWithCause("failed to find comment response", err)
	}
	return commentResponseToEntity(&model)
}

func (r *GormCommentResponseRepository) FindPendingByContent(ctx context.Context, contentRequestID string) ([]*entity.CommentResponse, error) {
	var rows []models.CommentResponseModel
	err := r.db.WithContext(ctx).
		Where("content_request_id = ? AND integration_status = ?", contentRequestID, string(entity.IntegrationPending)).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalErrorWithCause("failed to list pending comment responses", err)
	}

	out := make([]*entity.CommentResponse, 0, len(rows))
	for i := range rows {
		resp, err := commentResponseToEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// Conversion helpers

func commentResponseToModel(resp *entity.CommentResponse) (*models.CommentResponseModel, error) {
	relevance, err := json.Marshal(resp.Relevance)
	if err != nil {
		return nil, domainErrors.NewInternalErrorWithCause("failed to marshal relevance metadata", err)
	}

	return &models.CommentResponseModel{
		ID:                resp.ID,
		CommentRequestID:  resp.CommentRequestID,
		ContentRequestID:  resp.ContentRequestID,
		LeagueID:          resp.LeagueID,
		UserID:            resp.UserID,
		RawResponse:       resp.RawResponse,
		ProcessedResponse: resp.ProcessedResponse,
		ResponseType:      string(resp.ResponseType),
		Relevance:         string(relevance),
		EngagementLevel:   string(resp.EngagementLevel),
		IntegrationStatus: string(resp.IntegrationStatus),
		CreatedAt:         resp.CreatedAt,
	}, nil
}

func commentResponseToEntity(model *models.CommentResponseModel) (*entity.CommentResponse, error) {
	var relevance valueobject.RelevanceMetadata
	if model.Relevance != "" {
		if err := json.Unmarshal([]byte(model.Relevance), &relevance); err != nil {
			relevance = valueobject.RelevanceMetadata{}
		}
	}

	return &entity.CommentResponse{
		ID:                model.ID,
		CommentRequestID:  model.CommentRequestID,
		ContentRequestID:  model.ContentRequestID,
		LeagueID:          model.LeagueID,
		UserID:            model.UserID,
		RawResponse:       model.RawResponse,
		ProcessedResponse: model.ProcessedResponse,
		ResponseType:      entity.ResponseType(model.ResponseType),
		Relevance:         relevance,
		EngagementLevel:   entity.EngagementLevel(model.EngagementLevel),
		IntegrationStatus: entity.IntegrationStatus(model.IntegrationStatus),
		CreatedAt:         model.CreatedAt,
	}, nil
}
