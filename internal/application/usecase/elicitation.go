package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	"github.com/leaguedesk/leaguedesk/internal/domain/service"
	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/config"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/eventbus"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/notify"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/sportsdata"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/templates"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// End reasons stamped on finished conversations.
const (
	EndReasonSufficient  = "sufficient_response"
	EndReasonAutoEnded   = "auto_ended"
	EndReasonExpired     = "expired"
	EndReasonAbuse       = "abuse_detected"
	EndReasonMaxMessages = "max_messages_reached"
	EndReasonOffTopic    = "off_topic"
)

// Elicitation runs the per-user dialogue state machine: it opens the
// conversation ahead of generation, analyzes each reply, decides whether to
// keep asking, and folds the finished dialogue into a comment response for
// the pipeline to consume. Everything after SubmitUserReply is task-driven.
type Elicitation struct {
	commentRepo  repository.CommentRequestRepository
	messageRepo  repository.ConversationMessageRepository
	responseRepo repository.CommentResponseRepository
	contentRepo  repository.ContentRequestRepository
	registry     *templates.Registry
	provider     sportsdata.Provider
	llm          service.LLMClient
	sched        TaskScheduler
	bus          eventbus.Bus
	dispatcher   notify.Dispatcher
	cfg          config.CommentsConfig
	logger       *zap.Logger
}

// NewElicitation wires the engine.
func NewElicitation(
	commentRepo repository.CommentRequestRepository,
	messageRepo repository.ConversationMessageRepository,
	responseRepo repository.CommentResponseRepository,
	contentRepo repository.ContentRequestRepository,
	registry *templates.Registry,
	provider sportsdata.Provider,
	llm service.LLMClient,
	sched TaskScheduler,
	bus eventbus.Bus,
	dispatcher notify.Dispatcher,
	cfg config.CommentsConfig,
	logger *zap.Logger,
) *Elicitation {
	return &Elicitation{
		commentRepo:  commentRepo,
		messageRepo:  messageRepo,
		responseRepo: responseRepo,
		contentRepo:  contentRepo,
		registry:     registry,
		provider:     provider,
		llm:          llm,
		sched:        sched,
		bus:          bus,
		dispatcher:   dispatcher,
		cfg:          cfg,
		logger:       logger.With(zap.String("component", "elicitation")),
	}
}

// CreateForContent creates one comment request per target user ahead of
// generation. Idempotent per (content request, user): existing requests are
// skipped. The opening question fires leadTime before generationTime and the
// conversation expires shortly before generation so its material can land.
// activity elevates priority for historically engaged users; nil means flat.
func (e *Elicitation) CreateForContent(ctx context.Context, contentRequestID string, targetUserIDs []string, generationTime time.Time, activity map[string]int) ([]string, error) {
	content, err := e.contentRepo.FindByID(ctx, contentRequestID)
	if err != nil {
		return nil, err
	}

	if len(targetUserIDs) == 0 {
		league, leagueErr := e.provider.League(ctx, content.LeagueID, content.SeasonID)
		if leagueErr != nil {
			return nil, leagueErr
		}
		targetUserIDs = league.MemberUserIDs()
	}

	leadTime := e.cfg.LeadTime
	maxMessages := e.cfg.MaxMessages
	if tmpl, ok := e.registry.Lookup(content.ContentType); ok {
		if tmpl.LeadTime > 0 {
			leadTime = time.Duration(tmpl.LeadTime)
		}
		if tmpl.MaxMessages > 0 {
			maxMessages = tmpl.MaxMessages
		}
	}

	sendAt := generationTime.Add(-leadTime)
	expireAt := generationTime.Add(-e.cfg.ExpirationLead)
	now := time.Now()
	if sendAt.Before(now) {
		sendAt = now
	}

	var created []string
	for _, userID := range targetUserIDs {
		if _, findErr := e.commentRepo.FindByContentAndUser(ctx, contentRequestID, userID); findErr == nil {
			continue // already invited
		} else if !domainErrors.IsNotFound(findErr) {
			return created, findErr
		}

		req, newErr := entity.NewCommentRequest(
			uuid.NewString(), content.LeagueID, content.ContentType, contentRequestID, userID,
			sendAt, expireAt,
			entity.AutoEndCriteria{
				MaxMessages:              maxMessages,
				MinResponseLength:        e.cfg.MinResponseLength,
				InactivityTimeoutMinutes: e.cfg.InactivityTimeoutMinutes,
			},
		)
		if newErr != nil {
			return created, domainErrors.Wrap(domainErrors.CodeInvalidInput, "invalid comment request", newErr)
		}
		req.Priority = activity[userID]

		if saveErr := e.commentRepo.Save(ctx, req); saveErr != nil {
			return created, saveErr
		}
		if _, schedErr := e.sched.Schedule(ctx, TaskSendOpening, CommentTaskPayload{CommentRequestID: req.ID}, sendAt); schedErr != nil {
			return created, schedErr
		}
		created = append(created, req.ID)
	}

	e.logger.Info("Comment requests created",
		zap.String("content_request_id", contentRequestID),
		zap.Int("created", len(created)),
		zap.Int("targets", len(targetUserIDs)),
	)
	return created, nil
}

// SendOpeningQuestion moves a pending request to active: builds the league
// context, asks the model for an opening question, records it as the first
// turn and notifies the user. Also arms the expiration check.
func (e *Elicitation) SendOpeningQuestion(ctx context.Context, commentRequestID string) error {
	req, err := e.commentRepo.FindByID(ctx, commentRequestID)
	if err != nil {
		return err
	}
	if req.Status != entity.CommentStatusPending || req.ConversationState != entity.ConvStateNotStarted {
		e.logger.Debug("Skipping opening question, request no longer pending",
			zap.String("comment_request_id", req.ID),
			zap.String("status", string(req.Status)),
		)
		return nil
	}

	convCtx, err := e.buildContext(ctx, req)
	if err != nil {
		return err
	}
	question, result, err := e.askModel(ctx, convCtx, nil,
		"Ask this league member one specific, open-ended question inviting their commentary for the upcoming article. One question, conversational tone.")
	if err != nil {
		return err
	}

	msg, err := entity.NewConversationMessage(uuid.NewString(), req.ID, 0, entity.MessageTypeAIQuestion, question)
	if err != nil {
		return err
	}
	msg.Generation = &entity.GenerationMeta{ModelID: result.ModelUsed, Intent: "opening_question"}
	if err := e.messageRepo.Append(ctx, req, msg); err != nil {
		return err
	}

	req.Status = entity.CommentStatusActive
	if err := service.TransitionConversation(req, entity.ConvStateInitialRequestSent); err != nil {
		return err
	}
	if err := e.commentRepo.Save(ctx, req); err != nil {
		return err
	}
	e.publishStatus(ctx, req)

	if _, err := e.sched.Schedule(ctx, TaskExpire, CommentTaskPayload{CommentRequestID: req.ID}, req.ExpirationTime); err != nil {
		return err
	}
	if err := e.armInactivityCheck(ctx, req); err != nil {
		return err
	}

	e.notifyUser(ctx, req, notify.KindOpeningQuestion, "We'd love your take", question)
	return nil
}

// SubmitUserReply is the synchronous mutation boundary: it authorizes the
// caller, appends the reply at the next message order and schedules debounced
// analysis. Everything else about the reply happens in tasks.
func (e *Elicitation) SubmitUserReply(ctx context.Context, commentRequestID, callerUserID, text string) (*entity.ConversationMessage, error) {
	req, err := e.commentRepo.FindByID(ctx, commentRequestID)
	if err != nil {
		return nil, err
	}
	if callerUserID != req.TargetUserID {
		return nil, domainErrors.NewUnauthorizedError("reply submitted by a non-target user")
	}
	if req.ConversationState.IsTerminal() {
		return nil, domainErrors.NewInvalidInputError("conversation has already ended")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domainErrors.NewInvalidInputError("reply text is empty")
	}
	if e.cfg.MaxReplyLength > 0 && len([]rune(text)) > e.cfg.MaxReplyLength {
		return nil, domainErrors.NewInvalidInputError(
			fmt.Sprintf("reply exceeds %d characters", e.cfg.MaxReplyLength))
	}

	msg, err := entity.NewConversationMessage(uuid.NewString(), req.ID, 0, entity.MessageTypeUserResponse, text)
	if err != nil {
		return nil, err
	}
	if err := e.messageRepo.Append(ctx, req, msg); err != nil {
		return nil, err
	}

	if service.CanTransitionConversation(req.ConversationState, entity.ConvStateGatheringDetails) {
		_ = service.TransitionConversation(req, entity.ConvStateGatheringDetails)
	}
	if err := e.commentRepo.Save(ctx, req); err != nil {
		return nil, err
	}
	e.publishStatus(ctx, req)

	if _, err := e.sched.ScheduleAfter(ctx, TaskProcessReply,
		CommentTaskPayload{CommentRequestID: req.ID, MessageID: msg.ID}, e.cfg.ReplyDebounce); err != nil {
		return nil, err
	}
	return msg, nil
}

var analysisSchema = service.JSONSchema{
	Name: "reply_analysis",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sentiment":         map[string]any{"type": "string"},
			"completeness":      map[string]any{"type": "integer"},
			"relevant_topics":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"quotable_segments": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"off_topic_score":   map[string]any{"type": "integer"},
			"response_quality":  map[string]any{"type": "integer"},
		},
		"required":             []string{"sentiment", "completeness", "off_topic_score", "response_quality"},
		"additionalProperties": false,
	},
	Strict: true,
}

// ProcessReply analyzes a user reply and applies the continuation policy.
// Runs debounced after SubmitUserReply; a conversation that went terminal in
// the meantime is left alone.
func (e *Elicitation) ProcessReply(ctx context.Context, commentRequestID, messageID string) error {
	req, err := e.commentRepo.FindByID(ctx, commentRequestID)
	if err != nil {
		return err
	}
	if req.ConversationState.IsTerminal() {
		e.logger.Debug("Skipping reply processing, conversation already terminal",
			zap.String("comment_request_id", req.ID))
		return nil
	}

	msgs, err := e.messageRepo.FindByCommentRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	msg := findMessage(msgs, messageID)
	if msg == nil {
		return domainErrors.NewNotFoundError("reply message not found")
	}

	analysis, err := e.analyzeReply(ctx, req, msg.Content)
	if err != nil {
		return err
	}
	if attachErr := msg.AttachAnalysis(*analysis); attachErr != nil {
		return attachErr
	}
	if err := e.messageRepo.AttachAnalysis(ctx, msg); err != nil {
		return err
	}

	decision := service.EvaluateContinuation(service.ContinuationInput{
		CurrentMessageCount: req.AutoEnd.CurrentMessageCount,
		MaxMessages:         req.AutoEnd.MaxMessages,
		OffTopicScore:       analysis.OffTopicScore,
		QuotableSegments:    len(analysis.QuotableSegments),
		ResponseQuality:     analysis.ResponseQuality,
		Completeness:        analysis.Completeness,
		IsFirstReply:        countUserReplies(msgs) == 1,
	})

	if decision.Continue {
		if service.CanTransitionConversation(req.ConversationState, entity.ConvStateFollowUpNeeded) {
			_ = service.TransitionConversation(req, entity.ConvStateFollowUpNeeded)
		}
		if err := e.commentRepo.Save(ctx, req); err != nil {
			return err
		}
		_, err := e.sched.ScheduleAfter(ctx, TaskGenerateFollowUp,
			CommentTaskPayload{CommentRequestID: req.ID}, 0)
		return err
	}

	return e.Finalize(ctx, req.ID, endReasonFor(decision.Reason))
}

// GenerateFollowUp asks the model for the next question. The last user reply
// is screened first; medium-or-worse abuse ends the conversation instead of
// sending anything.
func (e *Elicitation) GenerateFollowUp(ctx context.Context, commentRequestID string) error {
	req, err := e.commentRepo.FindByID(ctx, commentRequestID)
	if err != nil {
		return err
	}
	if req.ConversationState.IsTerminal() {
		return nil
	}

	msgs, err := e.messageRepo.FindByCommentRequest(ctx, req.ID)
	if err != nil {
		return err
	}

	if lastReply := lastUserReply(msgs); lastReply != nil {
		detector := e.detectorFor(req.ContentType)
		if result := detector.Check(lastReply.Content); result.Severity.ShouldTerminate() {
			e.logger.Warn("Abuse detected, ending conversation",
				zap.String("comment_request_id", req.ID),
				zap.String("pattern", result.Pattern),
				zap.String("severity", result.Severity.String()),
			)
			return e.Finalize(ctx, req.ID, EndReasonAbuse)
		}
	}

	convCtx, err := e.buildContext(ctx, req)
	if err != nil {
		return err
	}
	question, result, err := e.askModel(ctx, convCtx, msgs,
		"Given the conversation so far, ask one follow-up question that digs into the most quotable thread. One question only.")
	if err != nil {
		return err
	}

	msg, err := entity.NewConversationMessage(uuid.NewString(), req.ID, 0, entity.MessageTypeAIFollowUp, question)
	if err != nil {
		return err
	}
	msg.Generation = &entity.GenerationMeta{ModelID: result.ModelUsed, Intent: "follow_up"}
	if err := e.messageRepo.Append(ctx, req, msg); err != nil {
		return err
	}

	if service.CanTransitionConversation(req.ConversationState, entity.ConvStateGatheringDetails) {
		_ = service.TransitionConversation(req, entity.ConvStateGatheringDetails)
	}
	if err := e.commentRepo.Save(ctx, req); err != nil {
		return err
	}
	if err := e.armInactivityCheck(ctx, req); err != nil {
		return err
	}

	e.notifyUser(ctx, req, notify.KindFollowUp, "One more question", question)
	return nil
}

// armInactivityCheck schedules a stall check for after the inactivity window.
// Armed after every AI question; a check that fires after newer activity
// no-ops, so stale checks from earlier questions are harmless.
func (e *Elicitation) armInactivityCheck(ctx context.Context, req *entity.CommentRequest) error {
	if req.AutoEnd.InactivityTimeoutMinutes <= 0 {
		return nil
	}
	timeout := time.Duration(req.AutoEnd.InactivityTimeoutMinutes) * time.Minute
	_, err := e.sched.ScheduleAfter(ctx, TaskInactivityCheck,
		CommentTaskPayload{CommentRequestID: req.ID}, timeout)
	return err
}

// CheckInactivity ends a conversation whose user has gone quiet for the full
// inactivity window since the last recorded activity. Replies and follow-ups
// both bump the activity clock, so a check armed before them finds fresh
// activity and leaves the conversation open.
func (e *Elicitation) CheckInactivity(ctx context.Context, commentRequestID string) error {
	req, err := e.commentRepo.FindByID(ctx, commentRequestID)
	if err != nil {
		return err
	}
	if req.ConversationState.IsTerminal() {
		return nil
	}
	if req.AutoEnd.InactivityTimeoutMinutes <= 0 || req.AutoEnd.LastActivityTime == nil {
		return nil
	}

	timeout := time.Duration(req.AutoEnd.InactivityTimeoutMinutes) * time.Minute
	if time.Since(*req.AutoEnd.LastActivityTime) < timeout {
		return nil
	}

	e.logger.Info("Conversation stalled past inactivity timeout",
		zap.String("comment_request_id", req.ID),
		zap.Time("last_activity", *req.AutoEnd.LastActivityTime),
	)
	return e.Finalize(ctx, req.ID, EndReasonAutoEnded)
}

// ExpireIfStillOpen fires at expirationTime. A conversation that reached a
// terminal state first makes this a no-op; otherwise generation proceeds
// without this user's input.
func (e *Elicitation) ExpireIfStillOpen(ctx context.Context, commentRequestID string) error {
	req, err := e.commentRepo.FindByID(ctx, commentRequestID)
	if err != nil {
		return err
	}
	if req.ConversationState.IsTerminal() {
		return nil
	}
	return e.Finalize(ctx, req.ID, EndReasonExpired)
}

// Finalize ends the conversation: terminal state, closing system message
// worded by reason, and exactly one comment response folded from the user
// turns. Safe to call from racing tasks; the first one wins and the rest
// no-op on the terminal check.
func (e *Elicitation) Finalize(ctx context.Context, commentRequestID, reason string) error {
	req, err := e.commentRepo.FindByID(ctx, commentRequestID)
	if err != nil {
		return err
	}
	if req.ConversationState.IsTerminal() {
		e.logger.Debug("Skipping finalize, conversation already terminal",
			zap.String("comment_request_id", req.ID),
			zap.String("reason", reason),
		)
		return nil
	}

	msgs, err := e.messageRepo.FindByCommentRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	// A finalize retried after a partial failure already persisted its
	// closing message; appending again would duplicate it.
	if !hasSystemMessage(msgs) {
		closing, err := entity.NewConversationMessage(uuid.NewString(), req.ID, 0, entity.MessageTypeSystem, closingMessage(reason))
		if err != nil {
			return err
		}
		if err := e.messageRepo.Append(ctx, req, closing); err != nil {
			return err
		}
	}

	target := entity.ConvStateResponseComplete
	if reason == EndReasonExpired || reason == EndReasonAbuse || reason == EndReasonAutoEnded {
		target = entity.ConvStateAutoEnded
	}
	if !service.CanTransitionConversation(req.ConversationState, target) {
		target = entity.ConvStateAutoEnded
	}
	if err := service.TransitionConversation(req, target); err != nil {
		return err
	}
	if reason == EndReasonExpired {
		req.Status = entity.CommentStatusExpired
	} else {
		req.Status = entity.CommentStatusCompleted
	}
	req.EndReason = reason
	if err := e.commentRepo.Save(ctx, req); err != nil {
		return err
	}
	e.publishStatus(ctx, req)

	if err := e.foldResponse(ctx, req); err != nil {
		return err
	}

	e.notifyUser(ctx, req, notify.KindConversationEnded, "Thanks for your take", closingMessage(reason))
	e.logger.Info("Conversation finalized",
		zap.String("comment_request_id", req.ID),
		zap.String("reason", reason),
		zap.String("state", string(req.ConversationState)),
	)
	return nil
}

// foldResponse produces the one comment response for a finished
// conversation. Re-finalization attempts find the existing aggregate and
// leave it untouched.
func (e *Elicitation) foldResponse(ctx context.Context, req *entity.CommentRequest) error {
	if _, err := e.responseRepo.FindByCommentRequest(ctx, req.ID); err == nil {
		return nil // already folded
	} else if !domainErrors.IsNotFound(err) {
		return err
	}

	msgs, err := e.messageRepo.FindByCommentRequest(ctx, req.ID)
	if err != nil {
		return err
	}

	var (
		raw          []string
		quotes       []string
		topics       []string
		completeness int
		offTopic     int
		replies      int
	)
	seenQuotes := make(map[string]bool)
	seenTopics := make(map[string]bool)
	for _, msg := range msgs {
		if msg.MessageType != entity.MessageTypeUserResponse {
			continue
		}
		replies++
		raw = append(raw, msg.Content)
		if msg.Analysis == nil {
			continue
		}
		completeness += msg.Analysis.Completeness
		offTopic += msg.Analysis.OffTopicScore
		for _, q := range msg.Analysis.QuotableSegments {
			if !seenQuotes[q] {
				seenQuotes[q] = true
				quotes = append(quotes, q)
			}
		}
		for _, topic := range msg.Analysis.RelevantTopics {
			if !seenTopics[topic] {
				seenTopics[topic] = true
				topics = append(topics, topic)
			}
		}
	}

	quality := 0
	relevance := 0
	if replies > 0 {
		quality = completeness / replies
		relevance = 100 - offTopic/replies
	}

	resp, err := entity.NewCommentResponse(uuid.NewString(), req.ID, req.ContentRequestID, req.LeagueID, req.TargetUserID)
	if err != nil {
		return err
	}
	resp.RawResponse = strings.Join(raw, "\n\n")
	resp.ProcessedResponse = strings.Join(quotes, "\n")
	resp.EngagementLevel = entity.EngagementFromQuality(quality)
	resp.Relevance = valueobject.RelevanceMetadata{
		TopicRelevance:  relevance,
		QualityScore:    quality,
		UsabilityRating: quality,
		ExtractedQuotes: quotes,
		KeyInsights:     topics,
	}
	return e.responseRepo.Save(ctx, resp)
}

// buildContext assembles the read-only league situation for the prompts.
func (e *Elicitation) buildContext(ctx context.Context, req *entity.CommentRequest) (*valueobject.ConversationContext, error) {
	league, err := e.provider.League(ctx, req.LeagueID, "")
	if err != nil {
		return nil, err
	}
	standings, err := e.provider.Standings(ctx, req.LeagueID, league.SeasonID, league.CurrentWeek)
	if err != nil {
		return nil, err
	}
	matchups, err := e.provider.Matchups(ctx, req.LeagueID, league.SeasonID, league.CurrentWeek)
	if err != nil {
		return nil, err
	}

	convCtx := &valueobject.ConversationContext{
		LeagueID:    req.LeagueID,
		SeasonID:    league.SeasonID,
		Week:        league.CurrentWeek,
		ContentType: req.ContentType,
		Standings:   standings,
		Matchups:    matchups,
	}

	if teamID, ok := league.TeamByUser[req.TargetUserID]; ok {
		perf, perfErr := e.provider.TeamPerformance(ctx, req.LeagueID, league.SeasonID, teamID)
		if perfErr == nil {
			convCtx.UserTeam = perf
			convCtx.PlayoffStakes = playoffStakes(standings, teamID)
		}
	}
	return convCtx, nil
}

// askModel requests one conversational turn as free text.
func (e *Elicitation) askModel(ctx context.Context, convCtx *valueobject.ConversationContext, history []*entity.ConversationMessage, instruction string) (string, *service.TextResult, error) {
	payload := map[string]any{
		"league_context": convCtx,
		"instruction":    instruction,
	}
	if len(history) > 0 {
		transcript := make([]map[string]string, 0, len(history))
		for _, msg := range history {
			transcript = append(transcript, map[string]string{
				"type":    string(msg.MessageType),
				"content": msg.Content,
			})
		}
		payload["transcript"] = transcript
	}
	userPrompt, _ := json.Marshal(payload)

	result, err := e.llm.GenerateText(ctx, &service.TextRequest{
		SystemPrompt: "You interview fantasy league members for league articles.",
		UserPrompt:   string(userPrompt),
	})
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(result.Text), result, nil
}

// analyzeReply scores a user reply. When structured output is unavailable
// the reply gets a neutral mid-range score so the conversation still moves.
func (e *Elicitation) analyzeReply(ctx context.Context, req *entity.CommentRequest, text string) (*valueobject.MessageAnalysis, error) {
	userPrompt, _ := json.Marshal(map[string]any{
		"content_type": req.ContentType,
		"reply":        text,
	})

	structured, err := e.llm.GenerateStructured(ctx, &service.StructuredRequest{
		SystemPrompt: "Score this fantasy league member's reply for use in a league article.",
		UserPrompt:   string(userPrompt),
		Schema:       analysisSchema,
	})
	if err != nil {
		if errors.Is(err, service.ErrStructuredOutput) {
			e.logger.Warn("Structured analysis unavailable, using neutral scores",
				zap.String("comment_request_id", req.ID))
			return &valueobject.MessageAnalysis{
				Sentiment:       "neutral",
				Completeness:    50,
				OffTopicScore:   0,
				ResponseQuality: 50,
			}, nil
		}
		return nil, err
	}

	var analysis valueobject.MessageAnalysis
	if err := json.Unmarshal(structured.Raw, &analysis); err != nil {
		return nil, fmt.Errorf("decode reply analysis: %w", err)
	}
	return &analysis, nil
}

func (e *Elicitation) detectorFor(contentType string) *service.AbuseDetector {
	var keywords []string
	if tmpl, ok := e.registry.Lookup(contentType); ok {
		keywords = tmpl.OffTopicKeywords
	}
	return service.NewAbuseDetector(keywords, e.cfg.MaxReplyLength)
}

func (e *Elicitation) notifyUser(ctx context.Context, req *entity.CommentRequest, kind, title, body string) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.Dispatch(ctx, notify.Notification{
		UserID:           req.TargetUserID,
		LeagueID:         req.LeagueID,
		CommentRequestID: req.ID,
		Kind:             kind,
		Title:            title,
		Body:             body,
	})
}

func (e *Elicitation) publishStatus(ctx context.Context, req *entity.CommentRequest) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ctx, eventbus.NewEvent(eventbus.EventCommentStatusChanged, eventbus.CommentStatusPayload{
		CommentRequestID:  req.ID,
		ContentRequestID:  req.ContentRequestID,
		TargetUserID:      req.TargetUserID,
		Status:            string(req.Status),
		ConversationState: string(req.ConversationState),
	}))
}

func findMessage(msgs []*entity.ConversationMessage, id string) *entity.ConversationMessage {
	for _, msg := range msgs {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func hasSystemMessage(msgs []*entity.ConversationMessage) bool {
	for _, msg := range msgs {
		if msg.MessageType == entity.MessageTypeSystem {
			return true
		}
	}
	return false
}

func countUserReplies(msgs []*entity.ConversationMessage) int {
	n := 0
	for _, msg := range msgs {
		if msg.MessageType == entity.MessageTypeUserResponse {
			n++
		}
	}
	return n
}

func lastUserReply(msgs []*entity.ConversationMessage) *entity.ConversationMessage {
	sorted := make([]*entity.ConversationMessage, len(msgs))
	copy(sorted, msgs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MessageOrder < sorted[j].MessageOrder
	})
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].MessageType == entity.MessageTypeUserResponse {
			return sorted[i]
		}
	}
	return nil
}

// playoffStakes summarizes where a team sits relative to the playoff cut so
// questions can reference what the user is actually playing for.
func playoffStakes(standings []valueobject.StandingsRow, teamID string) string {
	const playoffSpots = 4
	for _, row := range standings {
		if row.TeamID != teamID {
			continue
		}
		switch {
		case len(standings) <= playoffSpots:
			return "every team makes the playoffs, seeding is the fight"
		case row.Rank <= playoffSpots-1:
			return fmt.Sprintf("sitting comfortably at rank %d, playoff spot nearly locked", row.Rank)
		case row.Rank == playoffSpots:
			return "holding the last playoff spot, every matchup matters"
		case row.Rank == playoffSpots+1:
			return "first team out, one win from a playoff spot"
		default:
			return fmt.Sprintf("rank %d, needs a run to reach the playoff picture", row.Rank)
		}
	}
	return ""
}

func endReasonFor(policyReason string) string {
	switch policyReason {
	case service.ReasonMaxMessages:
		return EndReasonMaxMessages
	case service.ReasonOffTopic:
		return EndReasonOffTopic
	default:
		return EndReasonSufficient
	}
}

func closingMessage(reason string) string {
	switch reason {
	case EndReasonExpired:
		return "This conversation has closed so the article can be written. Thanks for being part of the league!"
	case EndReasonAbuse:
		return "This conversation has been ended. The article will be written without this material."
	case EndReasonMaxMessages:
		return "That's all the questions for now. Thanks so much for your commentary!"
	case EndReasonOffTopic:
		return "Thanks for chatting! We'll take it from here."
	default:
		return "Great material, thanks! Keep an eye out for the article."
	}
}
