package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/application/usecase"
	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	apperrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

type CommentHandler struct {
	elicitation  *usecase.Elicitation
	commentRepo  repository.CommentRequestRepository
	messageRepo  repository.ConversationMessageRepository
	responseRepo repository.CommentResponseRepository
	logger       *zap.Logger
}

func NewCommentHandler(
	elicitation *usecase.Elicitation,
	commentRepo repository.CommentRequestRepository,
	messageRepo repository.ConversationMessageRepository,
	responseRepo repository.CommentResponseRepository,
	logger *zap.Logger,
) *CommentHandler {
	return &CommentHandler{
		elicitation:  elicitation,
		commentRepo:  commentRepo,
		messageRepo:  messageRepo,
		responseRepo: responseRepo,
		logger:       logger,
	}
}

type SubmitReplyRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

type MessageResponse struct {
	ID           string `json:"id"`
	MessageOrder int    `json:"message_order"`
	MessageType  string `json:"message_type"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"created_at"`
}

type CommentRequestResponse struct {
	ID                string            `json:"id"`
	ContentRequestID  string            `json:"content_request_id"`
	LeagueID          string            `json:"league_id"`
	ContentType       string            `json:"content_type"`
	TargetUserID      string            `json:"target_user_id"`
	Status            string            `json:"status"`
	ConversationState string            `json:"conversation_state"`
	MessageCount      int               `json:"message_count"`
	MaxMessages       int               `json:"max_messages"`
	ScheduledSendTime int64             `json:"scheduled_send_time"`
	ExpirationTime    int64             `json:"expiration_time"`
	EndReason         string            `json:"end_reason,omitempty"`
	Messages          []MessageResponse `json:"messages,omitempty"`
}

// SubmitReply records a user's conversational turn. The analysis and any
// follow-up question happen asynchronously after the debounce window.
func (h *CommentHandler) SubmitReply(c *gin.Context) {
	var req SubmitReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.elicitation.SubmitUserReply(c.Request.Context(), c.Param("id"), req.UserID, req.Text)
	if err != nil {
		h.logger.Warn("Reply rejected",
			zap.String("comment_request_id", c.Param("id")),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toMessageResponse(msg))
}

// Get returns a comment request with its full transcript.
func (h *CommentHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	req, err := h.commentRepo.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	msgs, err := h.messageRepo.FindByCommentRequest(ctx, req.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toCommentResponse(req)
	for _, msg := range msgs {
		resp.Messages = append(resp.Messages, toMessageResponse(msg))
	}
	c.JSON(http.StatusOK, resp)
}

// GetResponse returns the folded conversation aggregate, available once the
// conversation reached a terminal state.
func (h *CommentHandler) GetResponse(c *gin.Context) {
	resp, err := h.responseRepo.FindByCommentRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Decline marks a pending invitation declined before the opening question is
// sent, or ends an active conversation at the user's request.
func (h *CommentHandler) Decline(c *gin.Context) {
	ctx := c.Request.Context()
	req, err := h.commentRepo.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if req.ConversationState.IsTerminal() || req.Status == entity.CommentStatusDeclined {
		c.JSON(http.StatusOK, toCommentResponse(req))
		return
	}

	if req.Status == entity.CommentStatusPending {
		req.Status = entity.CommentStatusDeclined
		req.UpdatedAt = time.Now()
		if err := h.commentRepo.Save(ctx, req); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toCommentResponse(req))
		return
	}

	if err := h.elicitation.Finalize(ctx, req.ID, usecase.EndReasonSufficient); err != nil {
		respondError(c, err)
		return
	}
	updated, err := h.commentRepo.FindByID(ctx, req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentResponse(updated))
}

type CreateCommentRequestsRequest struct {
	ContentRequestID string         `json:"content_request_id" binding:"required"`
	TargetUserIDs    []string       `json:"target_user_ids"`
	GenerationTime   int64          `json:"generation_time" binding:"required"`
	UserActivity     map[string]int `json:"user_activity"`
}

// Create schedules conversation invitations ahead of a generation run. Users
// already holding a request for this content are skipped.
func (h *CommentHandler) Create(c *gin.Context) {
	var req CreateCommentRequestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids, err := h.elicitation.CreateForContent(
		c.Request.Context(),
		req.ContentRequestID,
		req.TargetUserIDs,
		time.Unix(req.GenerationTime, 0),
		req.UserActivity,
	)
	if err != nil {
		h.logger.Error("Failed to create comment requests", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"comment_request_ids": ids,
		"count":               len(ids),
	})
}

// ListPending returns pending invitations for a content request.
func (h *CommentHandler) ListPending(c *gin.Context) {
	contentRequestID := c.Query("content_request_id")
	if contentRequestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_request_id is required"})
		return
	}
	reqs, err := h.commentRepo.FindPendingByContent(c.Request.Context(), contentRequestID)
	if err != nil && !apperrors.IsNotFound(err) {
		respondError(c, err)
		return
	}

	out := make([]CommentRequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toCommentResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

func toCommentResponse(req *entity.CommentRequest) CommentRequestResponse {
	return CommentRequestResponse{
		ID:                req.ID,
		ContentRequestID:  req.ContentRequestID,
		LeagueID:          req.LeagueID,
		ContentType:       req.ContentType,
		TargetUserID:      req.TargetUserID,
		Status:            string(req.Status),
		ConversationState: string(req.ConversationState),
		MessageCount:      req.AutoEnd.CurrentMessageCount,
		MaxMessages:       req.AutoEnd.MaxMessages,
		ScheduledSendTime: req.ScheduledSendTime.Unix(),
		ExpirationTime:    req.ExpirationTime.Unix(),
		EndReason:         req.EndReason,
	}
}

func toMessageResponse(msg *entity.ConversationMessage) MessageResponse {
	return MessageResponse{
		ID:           msg.ID,
		MessageOrder: msg.MessageOrder,
		MessageType:  string(msg.MessageType),
		Content:      msg.Content,
		CreatedAt:    msg.CreatedAt.Unix(),
	}
}
