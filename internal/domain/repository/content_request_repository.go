package repository

import (
	"context"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
)

// ContentRequestRepository persists article-generation jobs.
// Defined in the domain layer, implemented in infrastructure (dependency
// inversion, same as the rest of the repositories).
type ContentRequestRepository interface {
	// Save creates or updates a content request.
	Save(ctx context.Context, req *entity.ContentRequest) error

	// FindByID loads a content request by id.
	FindByID(ctx context.Context, id string) (*entity.ContentRequest, error)

	// FindByLeague lists requests for a league, newest first.
	FindByLeague(ctx context.Context, leagueID string, limit, offset int) ([]*entity.ContentRequest, error)
}
