package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	"github.com/leaguedesk/leaguedesk/internal/domain/service"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/article"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/eventbus"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/sportsdata"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/templates"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// MaxPipelineRetries is the retry ceiling for a failed content request.
const MaxPipelineRetries = 3

// GenerationPipeline drives a content request through data preparation,
// model invocation and persistence. Each stage runs as its own scheduled
// task; stage failures become a terminal failed status instead of
// propagating, so a request never hangs in generating because of an error.
type GenerationPipeline struct {
	contentRepo  repository.ContentRequestRepository
	responseRepo repository.CommentResponseRepository
	registry     *templates.Registry
	fetchers     *sportsdata.FetcherRegistry
	provider     sportsdata.Provider
	llm          service.LLMClient
	parser       *article.Parser
	sched        TaskScheduler
	bus          eventbus.Bus
	logger       *zap.Logger
}

// NewGenerationPipeline wires the pipeline.
func NewGenerationPipeline(
	contentRepo repository.ContentRequestRepository,
	responseRepo repository.CommentResponseRepository,
	registry *templates.Registry,
	fetchers *sportsdata.FetcherRegistry,
	provider sportsdata.Provider,
	llm service.LLMClient,
	sched TaskScheduler,
	bus eventbus.Bus,
	logger *zap.Logger,
) *GenerationPipeline {
	return &GenerationPipeline{
		contentRepo:  contentRepo,
		responseRepo: responseRepo,
		registry:     registry,
		fetchers:     fetchers,
		provider:     provider,
		llm:          llm,
		parser:       article.NewParser(),
		sched:        sched,
		bus:          bus,
		logger:       logger.With(zap.String("component", "generation_pipeline")),
	}
}

// Submit validates the content type, creates the request in generating and
// schedules the first stage with zero delay. Returns the request id
// immediately; execution is fire-and-forget.
func (p *GenerationPipeline) Submit(ctx context.Context, contentType, persona, leagueID, seasonID, customContext string) (string, error) {
	tmpl, ok := p.registry.Lookup(contentType)
	if !ok {
		return "", domainErrors.New(domainErrors.CodeUnknownContentType,
			fmt.Sprintf("content type %q is not registered", contentType))
	}
	if persona == "" {
		persona = tmpl.DefaultPersona
	}

	req, err := entity.NewContentRequest(uuid.NewString(), leagueID, seasonID, contentType, persona, customContext)
	if err != nil {
		return "", domainErrors.Wrap(domainErrors.CodeInvalidInput, "invalid content request", err)
	}
	req.Metadata.CreditCost = tmpl.CreditCost

	if err := p.contentRepo.Save(ctx, req); err != nil {
		return "", fmt.Errorf("save content request: %w", err)
	}
	p.publishStatus(ctx, req)

	if _, err := p.sched.ScheduleAfter(ctx, TaskPrepareData, ContentTaskPayload{ContentRequestID: req.ID}, 0); err != nil {
		return "", fmt.Errorf("schedule data preparation: %w", err)
	}

	p.logger.Info("Content request submitted",
		zap.String("content_request_id", req.ID),
		zap.String("content_type", contentType),
		zap.String("league_id", leagueID),
	)
	return req.ID, nil
}

// PrepareData is stage one: assemble the league data bundle for the content
// type and schedule generation. Failure is terminal; recovery goes through
// RetryFailed.
func (p *GenerationPipeline) PrepareData(ctx context.Context, contentRequestID string) error {
	req, err := p.contentRepo.FindByID(ctx, contentRequestID)
	if err != nil {
		return err
	}
	if req.Status.IsTerminal() {
		p.logger.Debug("Skipping preparation, request already terminal",
			zap.String("content_request_id", req.ID))
		return nil
	}

	league, err := p.provider.League(ctx, req.LeagueID, req.SeasonID)
	if err != nil {
		return p.fail(ctx, req, domainErrors.CodeServiceUnavail, "league lookup failed: "+err.Error())
	}
	bundle, err := p.fetchers.Fetch(ctx, p.provider, req.ContentType, req.LeagueID, req.SeasonID, league.CurrentWeek)
	if err != nil {
		return p.fail(ctx, req, domainErrors.CodeServiceUnavail, "data preparation failed: "+err.Error())
	}

	prepared, err := json.Marshal(bundle)
	if err != nil {
		return p.fail(ctx, req, domainErrors.CodeInternal, "encode prepared data: "+err.Error())
	}
	req.PreparedData = prepared
	req.Metadata.Week = bundle.Week
	req.UpdatedAt = time.Now()
	if err := p.contentRepo.Save(ctx, req); err != nil {
		return err
	}

	_, err = p.sched.ScheduleAfter(ctx, TaskGenerate, ContentTaskPayload{ContentRequestID: req.ID}, 0)
	return err
}

// structuredArticle is the schema-constrained generation target.
type structuredArticle struct {
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Body          string   `json:"body"`
	FeaturedTeams []string `json:"featured_teams"`
	Tags          []string `json:"tags"`
}

var articleSchema = service.JSONSchema{
	Name: "league_article",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":          map[string]any{"type": "string"},
			"summary":        map[string]any{"type": "string"},
			"body":           map[string]any{"type": "string"},
			"featured_teams": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"tags":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required":             []string{"title", "summary", "body"},
		"additionalProperties": false,
	},
	Strict: true,
}

// Generate is stage two: fold available contributor material into the prompt,
// invoke the model (structured first, free text as fallback) and schedule
// persistence. A missing prepared payload is a distinct data-integrity
// failure, not a generation failure.
func (p *GenerationPipeline) Generate(ctx context.Context, contentRequestID string) error {
	req, err := p.contentRepo.FindByID(ctx, contentRequestID)
	if err != nil {
		return err
	}
	if req.Status.IsTerminal() {
		p.logger.Debug("Skipping generation, request already terminal",
			zap.String("content_request_id", req.ID))
		return nil
	}
	if len(req.PreparedData) == 0 {
		return p.fail(ctx, req, domainErrors.CodeMissingPreparedData,
			"prepared data payload is absent at generation time")
	}

	quotes := p.collectContributorQuotes(ctx, req.ID)
	systemPrompt, userPrompt := p.buildPrompts(req, quotes)

	started := time.Now()
	payload := PersistPayload{
		ContentRequestID: req.ID,
		Week:             req.Metadata.Week,
		CreditCost:       req.Metadata.CreditCost,
	}

	structured, err := p.llm.GenerateStructured(ctx, &service.StructuredRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Schema:       articleSchema,
	})
	switch {
	case err == nil:
		var art structuredArticle
		if decodeErr := json.Unmarshal(structured.Raw, &art); decodeErr != nil {
			return p.fail(ctx, req, domainErrors.CodeInternal, "decode structured article: "+decodeErr.Error())
		}
		payload.Title = art.Title
		payload.Summary = art.Summary
		payload.Body = art.Body
		payload.FeaturedTeams = art.FeaturedTeams
		payload.Tags = art.Tags
		payload.ModelUsed = structured.ModelUsed
		payload.PromptTokens = structured.PromptTokens
		payload.CompletionTokens = structured.CompletionTokens

	case errors.Is(err, service.ErrStructuredOutput):
		p.logger.Warn("Structured generation unavailable, falling back to free text",
			zap.String("content_request_id", req.ID),
			zap.Error(err),
		)
		text, textErr := p.llm.GenerateText(ctx, &service.TextRequest{
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
		})
		if textErr != nil {
			return p.fail(ctx, req, domainErrors.CodeServiceUnavail, "generation failed: "+textErr.Error())
		}
		parsed := p.parser.Parse(text.Text)
		payload.Title = parsed.Title
		payload.Summary = parsed.Summary
		payload.Body = parsed.Body
		payload.ModelUsed = text.ModelUsed
		payload.PromptTokens = text.PromptTokens
		payload.CompletionTokens = text.CompletionTokens

	default:
		return p.fail(ctx, req, failCodeFor(err), "generation failed: "+err.Error())
	}

	payload.GenerationMs = time.Since(started).Milliseconds()
	_, err = p.sched.ScheduleAfter(ctx, TaskPersistCleanup, payload, 0)
	return err
}

// PersistCleanup is stage three: write the final article, stamp the publish
// time and clear the transient prepared payload.
func (p *GenerationPipeline) PersistCleanup(ctx context.Context, payload PersistPayload) error {
	req, err := p.contentRepo.FindByID(ctx, payload.ContentRequestID)
	if err != nil {
		return err
	}

	meta := req.Metadata
	meta.Week = payload.Week
	meta.FeaturedTeams = payload.FeaturedTeams
	meta.Tags = payload.Tags
	meta.CreditCost = payload.CreditCost
	meta.ModelUsed = payload.ModelUsed
	meta.PromptTokens = payload.PromptTokens
	meta.CompletionTokens = payload.CompletionTokens
	meta.GenerationMs = payload.GenerationMs

	if err := req.MarkPublished(payload.Title, payload.Body, payload.Summary, meta); err != nil {
		// A late task observing a terminal request must no-op, not clobber.
		p.logger.Warn("Skipping publish, request already terminal",
			zap.String("content_request_id", req.ID))
		return nil
	}
	if err := p.contentRepo.Save(ctx, req); err != nil {
		return err
	}
	p.publishStatus(ctx, req)

	p.logger.Info("Content published",
		zap.String("content_request_id", req.ID),
		zap.String("title", req.Title),
		zap.String("model", meta.ModelUsed),
	)
	return nil
}

// RetryFailed re-enters the pipeline from stage one after an exponential
// backoff. Attempts beyond the ceiling fail permanently.
func (p *GenerationPipeline) RetryFailed(ctx context.Context, contentRequestID string, retryCount int) error {
	req, err := p.contentRepo.FindByID(ctx, contentRequestID)
	if err != nil {
		return err
	}

	if req.Status != entity.ContentStatusFailed {
		return domainErrors.New(domainErrors.CodeInvalidInput,
			fmt.Sprintf("request %s is %s, only failed requests retry", req.ID, req.Status))
	}

	if retryCount > MaxPipelineRetries {
		req.FailCode = string(domainErrors.CodeMaxRetriesExceeded)
		req.FailReason = fmt.Sprintf("retry %d exceeds ceiling %d", retryCount, MaxPipelineRetries)
		req.Status = entity.ContentStatusFailed
		req.UpdatedAt = time.Now()
		if saveErr := p.contentRepo.Save(ctx, req); saveErr != nil {
			return saveErr
		}
		p.publishStatus(ctx, req)
		return domainErrors.New(domainErrors.CodeMaxRetriesExceeded, req.FailReason)
	}

	if err := req.BeginRetry(retryCount); err != nil {
		return domainErrors.Wrap(domainErrors.CodeInvalidInput, "request is not retryable", err)
	}
	if err := p.contentRepo.Save(ctx, req); err != nil {
		return err
	}
	p.publishStatus(ctx, req)

	delay := time.Duration(1<<uint(retryCount)) * time.Second
	_, err = p.sched.ScheduleAfter(ctx, TaskPrepareData, ContentTaskPayload{ContentRequestID: req.ID}, delay)
	if err != nil {
		return err
	}

	p.logger.Info("Retry scheduled",
		zap.String("content_request_id", req.ID),
		zap.Int("retry_count", retryCount),
		zap.Duration("delay", delay),
	)
	return nil
}

// contributorQuote is one user's quotable material folded into the prompt.
type contributorQuote struct {
	UserID     string   `json:"user_id"`
	Quotes     []string `json:"quotes"`
	Engagement string   `json:"engagement"`
}

// collectContributorQuotes reads whatever comment responses exist right now
// and marks them integrated. Generation never waits for conversations still
// in flight.
func (p *GenerationPipeline) collectContributorQuotes(ctx context.Context, contentRequestID string) []contributorQuote {
	responses, err := p.responseRepo.FindPendingByContent(ctx, contentRequestID)
	if err != nil {
		p.logger.Warn("Failed to load comment responses, generating without them",
			zap.String("content_request_id", contentRequestID),
			zap.Error(err),
		)
		return nil
	}

	var quotes []contributorQuote
	for _, resp := range responses {
		quotes = append(quotes, contributorQuote{
			UserID:     resp.UserID,
			Quotes:     resp.Relevance.ExtractedQuotes,
			Engagement: string(resp.EngagementLevel),
		})
		resp.IntegrationStatus = entity.IntegrationConsumed
		if err := p.responseRepo.Save(ctx, resp); err != nil {
			p.logger.Warn("Failed to mark response integrated",
				zap.String("comment_request_id", resp.CommentRequestID),
				zap.Error(err),
			)
		}
	}
	return quotes
}

func (p *GenerationPipeline) buildPrompts(req *entity.ContentRequest, quotes []contributorQuote) (string, string) {
	userContext := map[string]any{
		"content_type":   req.ContentType,
		"league_id":      req.LeagueID,
		"season_id":      req.SeasonID,
		"prepared_data":  json.RawMessage(req.PreparedData),
		"custom_context": req.CustomContext,
	}
	if len(quotes) > 0 {
		userContext["contributor_quotes"] = quotes
	}
	userPrompt, _ := json.Marshal(userContext)
	return req.Persona, string(userPrompt)
}

// fail applies the terminal failed transition and swallows the step error:
// by the time a stage fails there is no caller to return it to.
func (p *GenerationPipeline) fail(ctx context.Context, req *entity.ContentRequest, code domainErrors.ErrorCode, reason string) error {
	if err := req.MarkFailed(string(code), reason); err != nil {
		p.logger.Warn("Skipping failure transition, request already terminal",
			zap.String("content_request_id", req.ID))
		return nil
	}
	p.logger.Error("Pipeline stage failed",
		zap.String("content_request_id", req.ID),
		zap.String("code", string(code)),
		zap.String("reason", reason),
	)
	if err := p.contentRepo.Save(ctx, req); err != nil {
		return err
	}
	p.publishStatus(ctx, req)
	return nil
}

func (p *GenerationPipeline) publishStatus(ctx context.Context, req *entity.ContentRequest) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(ctx, eventbus.NewEvent(eventbus.EventContentStatusChanged, eventbus.ContentStatusPayload{
		ContentRequestID: req.ID,
		LeagueID:         req.LeagueID,
		Status:           string(req.Status),
		FailCode:         req.FailCode,
	}))
}

func failCodeFor(err error) domainErrors.ErrorCode {
	if domainErrors.HasCode(err, domainErrors.CodeMissingCredential) {
		return domainErrors.CodeMissingCredential
	}
	return domainErrors.CodeServiceUnavail
}
