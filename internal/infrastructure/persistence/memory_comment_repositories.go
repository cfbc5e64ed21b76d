package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// MemoryCommentStore is an in-memory implementation of the three comment
// repositories. A single struct backs all of them so Append can update the
// message list and the owning request's count under one lock, mirroring the
// transaction the database implementation runs.
type MemoryCommentStore struct {
	mu        sync.RWMutex
	requests  map[string]entity.CommentRequest
	messages  map[string][]entity.ConversationMessage
	responses map[string]entity.CommentResponse
}

// NewMemoryCommentStore creates the store.
func NewMemoryCommentStore() *MemoryCommentStore {
	return &MemoryCommentStore{
		requests:  make(map[string]entity.CommentRequest),
		messages:  make(map[string][]entity.ConversationMessage),
		responses: make(map[string]entity.CommentResponse),
	}
}

// Requests exposes the store as a CommentRequestRepository.
func (s *MemoryCommentStore) Requests() repository.CommentRequestRepository { return s }

// Messages exposes the store as a ConversationMessageRepository.
func (s *MemoryCommentStore) Messages() repository.ConversationMessageRepository { return s }

// Responses exposes the store as a CommentResponseRepository. A wrapper type
// is needed because the message and response repositories both declare a
// FindByCommentRequest method with different result types.
func (s *MemoryCommentStore) Responses() repository.CommentResponseRepository {
	return &memoryResponseRepo{store: s}
}

func (s *MemoryCommentStore) Save(ctx context.Context, req *entity.CommentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = *req
	return nil
}

func (s *MemoryCommentStore) FindByID(ctx context.Context, id string) (*entity.CommentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.requests[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("comment request not found")
	}
	copy := row
	return &copy, nil
}

func (s *MemoryCommentStore) FindByContentAndUser(ctx context.Context, contentRequestID, userID string) (*entity.CommentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.requests {
		if row.ContentRequestID == contentRequestID && row.TargetUserID == userID {
			copy := row
			return &copy, nil
		}
	}
	return nil, domainErrors.NewNotFoundError("comment request not found")
}

func (s *MemoryCommentStore) FindPendingByContent(ctx context.Context, contentRequestID string) ([]*entity.CommentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.CommentRequest
	for _, row := range s.requests {
		if row.ContentRequestID == contentRequestID && row.Status == entity.CommentStatusPending {
			copy := row
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out, nil
}

func (s *MemoryCommentStore) Append(ctx context.Context, req *entity.CommentRequest, msg *entity.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.messages[req.ID])
	msg.MessageOrder = count
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages[req.ID] = append(s.messages[req.ID], *msg)

	now := msg.CreatedAt
	req.AutoEnd.CurrentMessageCount = count + 1
	req.AutoEnd.LastActivityTime = &now
	req.UpdatedAt = now
	if stored, ok := s.requests[req.ID]; ok {
		stored.AutoEnd = req.AutoEnd
		stored.UpdatedAt = req.UpdatedAt
		s.requests[req.ID] = stored
	}
	return nil
}

func (s *MemoryCommentStore) AttachAnalysis(ctx context.Context, msg *entity.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.messages[msg.CommentRequestID]
	for i := range rows {
		if rows[i].ID == msg.ID {
			rows[i].Analysis = msg.Analysis
			return nil
		}
	}
	return domainErrors.NewNotFoundError("conversation message not found")
}

func (s *MemoryCommentStore) FindByCommentRequest(ctx context.Context, commentRequestID string) ([]*entity.ConversationMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.messages[commentRequestID]
	out := make([]*entity.ConversationMessage, 0, len(rows))
	for _, row := range rows {
		copy := row
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MessageOrder < out[j].MessageOrder
	})
	return out, nil
}

func (s *MemoryCommentStore) Count(ctx context.Context, commentRequestID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.messages[commentRequestID])), nil
}

type memoryResponseRepo struct {
	store *MemoryCommentStore
}

func (r *memoryResponseRepo) Save(ctx context.Context, resp *entity.CommentResponse) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.responses[resp.CommentRequestID] = *resp
	return nil
}

func (r *memoryResponseRepo) FindByCommentRequest(ctx context.Context, commentRequestID string) (*entity.CommentResponse, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	row, ok := r.store.responses[commentRequestID]
	if !ok {
		return nil, domainErrors.NewNotFoundError("comment response not found")
	}
	copy := row
	return &copy, nil
}

func (r *memoryResponseRepo) FindPendingByContent(ctx context.Context, contentRequestID string) ([]*entity.CommentResponse, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.CommentResponse
	for _, row := range r.store.responses {
		if row.ContentRequestID == contentRequestID && row.IntegrationStatus == entity.IntegrationPending {
			copy := row
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
