package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// MemoryContentRequestRepository is an in-memory content request store.
// Used in tests and single-binary dev mode; stores copies so callers cannot
// mutate persisted state without going through Save, matching how the real
// store behaves.
type MemoryContentRequestRepository struct {
	mu   sync.RWMutex
	rows map[string]entity.ContentRequest
}

// NewMemoryContentRequestRepository creates the store.
func NewMemoryContentRequestRepository() repository.ContentRequestRepository {
	return &MemoryContentRequestRepository{
		rows: make(map[string]entity.ContentRequest),
	}
}

func (r *MemoryContentRequestRepository) Save(ctx context.Context, req *entity.ContentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[req.ID] = *req
	return nil
}

func (r *MemoryContentRequestRepository) FindByID(ctx context.Context, id string) (*entity.ContentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("content request not found")
	}
	copy := row
	return &copy, nil
}

func (r *MemoryContentRequestRepository) FindByLeague(ctx context.Context, leagueID string, limit, offset int) ([]*entity.ContentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.ContentRequest
	for _, row := range r.rows {
		if row.LeagueID == leagueID {
			copy := row
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
