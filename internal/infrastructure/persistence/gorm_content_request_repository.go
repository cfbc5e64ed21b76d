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

// GormContentRequestRepository is the GORM-backed content request store.
type GormContentRequestRepository struct {
	db *gorm.DB
}

// NewGormContentRequestRepository creates the repository.
func NewGormContentRequestRepository(db *gorm.DB) repository.ContentRequestRepository {
	return &GormContentRequestRepository{db: db}
}

func (r *GormContentRequestRepository) Save(ctx context.Context, req *entity.ContentRequest) error {
	model, err := contentRequestToModel(req)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalErrorWithCause("failed to save content request", err)
	}
	return nil
}

func (r *GormContentRequestRepository) FindByID(ctx context.Context, id string) (*entity.ContentRequest, error) {
	var model models.ContentRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("content request not found")
		}
		return nil, domainErrors.NewInternalErrorWithCause("failed to find content request", err)
	}
	return contentRequestToEntity(&model)
}

func (r *GormContentRequestRepository) FindByLeague(ctx context.Context, leagueID string, limit, offset int) ([]*entity.ContentRequest, error) {
	var rows []models.ContentRequestModel
	err := r.db.WithContext(ctx).
		Where("league_id = ?", leagueID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalErrorWithCause("failed to list content requests", err)
	}

	out := make([]*entity.ContentRequest, 0, len(rows))
	for i := range rows {
		req, err := contentRequestToEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// Conversion helpers

func contentRequestToModel(req *entity.ContentRequest) (*models.ContentRequestModel, error) {
	metaBytes, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, domainErrors.NewInternalErrorWithCause("failed to marshal content metadata", err)
	}

	return &models.ContentRequestModel{
		ID:            req.ID,
		LeagueID:      req.LeagueID,
		SeasonID:      req.SeasonID,
		ContentType:   req.ContentType,
		Persona:       req.Persona,
		Status:        string(req.Status),
		Title:         req.Title,
		Body:          req.Body,
		Summary:       req.Summary,
		Metadata:      string(metaBytes),
		CustomContext: req.CustomContext,
		PreparedData:  string(req.PreparedData),
		RetryCount:    req.RetryCount,
		FailCode:      req.FailCode,
		FailReason:    req.FailReason,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
		PublishedAt:   req.PublishedAt,
	}, nil
}

func contentRequestToEntity(model *models.ContentRequestModel) (*entity.ContentRequest, error) {
	var meta entity.ContentMetadata
	if model.Metadata != "" {
		if err := json.Unmarshal([]byte(model.Metadata), &meta); err != nil {
			meta = entity.ContentMetadata{}
		}
	}

	var prepared []byte
	if model.PreparedData != "" {
		prepared = []byte(model.PreparedData)
	}

	return &entity.ContentRequest{
		ID:            model.ID,
		LeagueID:      model.LeagueID,
		SeasonID:      model.SeasonID,
		ContentType:   model.ContentType,
		Persona:       model.Persona,
		Status:        entity.ContentStatus(model.Status),
		Title:         model.Title,
		Body:          model.Body,
		Summary:       model.Summary,
		Metadata:      meta,
		CustomContext: model.CustomContext,
		PreparedData:  prepared,
		RetryCount:    model.RetryCount,
		FailCode:      model.FailCode,
		FailReason:    model.FailReason,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
		PublishedAt:   model.PublishedAt,
	}, nil
}
