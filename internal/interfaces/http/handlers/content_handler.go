package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/application/usecase"
	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
)

type ContentHandler struct {
	pipeline    *usecase.GenerationPipeline
	contentRepo repository.ContentRequestRepository
	logger      *zap.Logger
}

func NewContentHandler(pipeline *usecase.GenerationPipeline, contentRepo repository.ContentRequestRepository, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		pipeline:    pipeline,
		contentRepo: contentRepo,
		logger:      logger,
	}
}

type SubmitContentRequest struct {
	ContentType   string `json:"content_type" binding:"required"`
	LeagueID      string `json:"league_id" binding:"required"`
	SeasonID      string `json:"season_id"`
	Persona       string `json:"persona"`
	CustomContext string `json:"custom_context"`
}

type SubmitContentResponse struct {
	ContentRequestID string `json:"content_request_id"`
	Status           string `json:"status"`
}

type ContentRequestResponse struct {
	ID          string   `json:"id"`
	LeagueID    string   `json:"league_id"`
	SeasonID    string   `json:"season_id,omitempty"`
	ContentType string   `json:"content_type"`
	Persona     string   `json:"persona,omitempty"`
	Status      string   `json:"status"`
	Title       string   `json:"title,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Body        string   `json:"body,omitempty"`
	RetryCount  int      `json:"retry_count"`
	FailCode    string   `json:"fail_code,omitempty"`
	FailReason  string   `json:"fail_reason,omitempty"`
	CreatedAt   int64    `json:"created_at"`
	PublishedAt *int64   `json:"published_at,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreditCost  int      `json:"credit_cost,omitempty"`
	ModelUsed   string   `json:"model_used,omitempty"`
}

// Submit enqueues a new article-generation job and returns immediately with
// its id. The pipeline runs through the scheduler.
func (h *ContentHandler) Submit(c *gin.Context) {
	var req SubmitContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.pipeline.Submit(c.Request.Context(), req.ContentType, req.Persona, req.LeagueID, req.SeasonID, req.CustomContext)
	if err != nil {
		h.logger.Error("Failed to submit content request", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitContentResponse{
		ContentRequestID: id,
		Status:           string(entity.ContentStatusGenerating),
	})
}

// Get returns one content request with its article when published.
func (h *ContentHandler) Get(c *gin.Context) {
	req, err := h.contentRepo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContentResponse(req))
}

// List returns a league's requests, newest first.
func (h *ContentHandler) List(c *gin.Context) {
	leagueID := c.Query("league_id")
	if leagueID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "league_id is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reqs, err := h.contentRepo.FindByLeague(c.Request.Context(), leagueID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]ContentRequestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toContentResponse(req))
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

// Retry re-runs a failed request from the first pipeline stage. Each call
// consumes one attempt against the retry ceiling.
func (h *ContentHandler) Retry(c *gin.Context) {
	id := c.Param("id")
	req, err := h.contentRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	attempt := req.RetryCount + 1
	if err := h.pipeline.RetryFailed(c.Request.Context(), id, attempt); err != nil {
		h.logger.Warn("Retry rejected",
			zap.String("content_request_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"content_request_id": id,
		"retry_count":        attempt,
		"status":             string(entity.ContentStatusGenerating),
	})
}

func toContentResponse(req *entity.ContentRequest) ContentRequestResponse {
	resp := ContentRequestResponse{
		ID:          req.ID,
		LeagueID:    req.LeagueID,
		SeasonID:    req.SeasonID,
		ContentType: req.ContentType,
		Persona:     req.Persona,
		Status:      string(req.Status),
		Title:       req.Title,
		Summary:     req.Summary,
		Body:        req.Body,
		RetryCount:  req.RetryCount,
		FailCode:    req.FailCode,
		FailReason:  req.FailReason,
		CreatedAt:   req.CreatedAt.Unix(),
		Tags:        req.Metadata.Tags,
		CreditCost:  req.Metadata.CreditCost,
		ModelUsed:   req.Metadata.ModelUsed,
	}
	if req.PublishedAt != nil {
		ts := req.PublishedAt.Unix()
		resp.PublishedAt = &ts
	}
	return resp
}
