package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
	"github.com/leaguedesk/leaguedesk/internal/domain/service"
	"github.com/leaguedesk/leaguedesk/internal/domain/valueobject"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/persistence"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/sportsdata"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/templates"
	apperrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// fakeSched records scheduled tasks so tests drive execution synchronously.
type fakeSched struct {
	mu      sync.Mutex
	entries []fakeTask
	seq     int
}

type fakeTask struct {
	Kind    string
	Payload []byte
	RunAt   time.Time
}

func (f *fakeSched) Schedule(ctx context.Context, kind string, payload any, runAt time.Time) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.entries = append(f.entries, fakeTask{Kind: kind, Payload: data, RunAt: runAt})
	return fmt.Sprintf("task-%d", f.seq), nil
}

func (f *fakeSched) ScheduleAfter(ctx context.Context, kind string, payload any, delay time.Duration) (string, error) {
	return f.Schedule(ctx, kind, payload, time.Now().Add(delay))
}

func (f *fakeSched) pop() (fakeTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return fakeTask{}, false
	}
	task := f.entries[0]
	f.entries = f.entries[1:]
	return task, true
}

func (f *fakeSched) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fakeLLM returns canned structured and free-text completions.
type fakeLLM struct {
	structuredJSON  string
	structuredErr   error
	text            string
	textErr         error
	structuredCalls int
	textCalls       int
}

func (f *fakeLLM) GenerateStructured(ctx context.Context, req *service.StructuredRequest) (*service.StructuredResult, error) {
	f.structuredCalls++
	if f.structuredErr != nil {
		return nil, f.structuredErr
	}
	return &service.StructuredResult{
		Raw:              json.RawMessage(f.structuredJSON),
		ModelUsed:        "fake-structured",
		PromptTokens:     100,
		CompletionTokens: 200,
	}, nil
}

func (f *fakeLLM) GenerateText(ctx context.Context, req *service.TextRequest) (*service.TextResult, error) {
	f.textCalls++
	if f.textErr != nil {
		return nil, f.textErr
	}
	return &service.TextResult{
		Text:      f.text,
		ModelUsed: "fake-text",
	}, nil
}

type pipelineFixture struct {
	pipeline    *GenerationPipeline
	contentRepo *persistence.MemoryContentRequestRepository
	store       *persistence.MemoryCommentStore
	sched       *fakeSched
	llm         *fakeLLM
}

func newPipelineFixture(t *testing.T, llm *fakeLLM) *pipelineFixture {
	t.Helper()
	contentRepo := persistence.NewMemoryContentRequestRepository().(*persistence.MemoryContentRequestRepository)
	store := persistence.NewMemoryCommentStore()
	sched := &fakeSched{}

	pipeline := NewGenerationPipeline(
		contentRepo,
		store.Responses(),
		templates.NewRegistry("", zap.NewNop()),
		sportsdata.NewFetcherRegistry(),
		sportsdata.NewStaticProvider(),
		llm,
		sched,
		nil,
		zap.NewNop(),
	)
	return &pipelineFixture{
		pipeline:    pipeline,
		contentRepo: contentRepo,
		store:       store,
		sched:       sched,
		llm:         llm,
	}
}

// drain runs every scheduled pipeline task to completion, the way the
// durable scheduler would.
func (fx *pipelineFixture) drain(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for {
		task, ok := fx.sched.pop()
		if !ok {
			return
		}
		var err error
		switch task.Kind {
		case TaskPrepareData:
			var p ContentTaskPayload
			if err = json.Unmarshal(task.Payload, &p); err == nil {
				err = fx.pipeline.PrepareData(ctx, p.ContentRequestID)
			}
		case TaskGenerate:
			var p ContentTaskPayload
			if err = json.Unmarshal(task.Payload, &p); err == nil {
				err = fx.pipeline.Generate(ctx, p.ContentRequestID)
			}
		case TaskPersistCleanup:
			var p PersistPayload
			if err = json.Unmarshal(task.Payload, &p); err == nil {
				err = fx.pipeline.PersistCleanup(ctx, p)
			}
		default:
			t.Fatalf("unexpected task kind %q", task.Kind)
		}
		if err != nil {
			t.Fatalf("task %s failed: %v", task.Kind, err)
		}
	}
}

const validArticleJSON = `{"title":"Week 9: Gridlock Stays Perfect at Home","summary":"A rout, a collapse, and a waiver move nobody saw coming.","body":"The Gridlock keep rolling...","featured_teams":["Gridlock","Mudcats"],"tags":["week-9","recap"]}`

func TestPipelinePublishesStructuredArticle(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})

	id, err := fx.pipeline.Submit(context.Background(), "weekly_recap", "", "demo-league", "2026", "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	fx.drain(t)

	req, err := fx.contentRepo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if req.Status != entity.ContentStatusPublished {
		t.Fatalf("status = %s, want published (fail: %s %s)", req.Status, req.FailCode, req.FailReason)
	}
	if req.Title != "Week 9: Gridlock Stays Perfect at Home" {
		t.Errorf("title = %q", req.Title)
	}
	if req.Body == "" || req.Summary == "" {
		t.Error("body and summary must be populated")
	}
	if len(req.PreparedData) != 0 {
		t.Error("prepared data must be cleared on publish")
	}
	if req.PublishedAt == nil {
		t.Error("published_at must be stamped")
	}
	if req.Metadata.ModelUsed != "fake-structured" {
		t.Errorf("metadata model = %q", req.Metadata.ModelUsed)
	}
	if req.Persona != "beat_writer" {
		t.Errorf("persona = %q, want template default", req.Persona)
	}
	if fx.llm.textCalls != 0 {
		t.Errorf("free-text path used %d times, want 0", fx.llm.textCalls)
	}
}

func TestPipelineFallsBackToFreeText(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{
		structuredErr: fmt.Errorf("%w: schema rejected", service.ErrStructuredOutput),
		text:          "# The Benchwarmers Hit Rock Bottom\n\nAn 0-8 start has the league asking hard questions.\n\nMore body here.",
	})

	id, err := fx.pipeline.Submit(context.Background(), "weekly_recap", "", "demo-league", "2026", "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	fx.drain(t)

	req, _ := fx.contentRepo.FindByID(context.Background(), id)
	if req.Status != entity.ContentStatusPublished {
		t.Fatalf("status = %s, want published", req.Status)
	}
	if req.Title != "The Benchwarmers Hit Rock Bottom" {
		t.Errorf("title = %q, want heading from markdown", req.Title)
	}
	if req.Summary == "" {
		t.Error("summary must come from the first paragraph")
	}
	if fx.llm.textCalls != 1 {
		t.Errorf("textCalls = %d, want 1", fx.llm.textCalls)
	}
}

func TestPipelineUnknownContentType(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})

	_, err := fx.pipeline.Submit(context.Background(), "celebrity_gossip", "", "demo-league", "2026", "")
	if !apperrors.HasCode(err, apperrors.CodeUnknownContentType) {
		t.Fatalf("error = %v, want UNKNOWN_CONTENT_TYPE", err)
	}
	if fx.sched.pending() != 0 {
		t.Error("nothing may be scheduled for a rejected submit")
	}
}

func TestPipelineMissingPreparedData(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})
	ctx := context.Background()

	req, err := entity.NewContentRequest("cr-1", "demo-league", "2026", "weekly_recap", "beat_writer", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.contentRepo.Save(ctx, req); err != nil {
		t.Fatal(err)
	}

	if err := fx.pipeline.Generate(ctx, "cr-1"); err != nil {
		t.Fatalf("Generate() error = %v, stage failures must be swallowed", err)
	}

	got, _ := fx.contentRepo.FindByID(ctx, "cr-1")
	if got.Status != entity.ContentStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.FailCode != string(apperrors.CodeMissingPreparedData) {
		t.Errorf("fail code = %q, want MISSING_PREPARED_DATA", got.FailCode)
	}
	if fx.llm.structuredCalls != 0 {
		t.Error("the model must not be invoked without prepared data")
	}
}

func TestPipelineGenerationFailureIsTerminal(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{
		structuredErr: fmt.Errorf("upstream 500"),
	})

	id, err := fx.pipeline.Submit(context.Background(), "weekly_recap", "", "demo-league", "2026", "")
	if err != nil {
		t.Fatal(err)
	}
	fx.drain(t)

	req, _ := fx.contentRepo.FindByID(context.Background(), id)
	if req.Status != entity.ContentStatusFailed {
		t.Fatalf("status = %s, want failed", req.Status)
	}
	if req.FailCode != string(apperrors.CodeServiceUnavail) {
		t.Errorf("fail code = %q, want SERVICE_UNAVAILABLE", req.FailCode)
	}
}

func TestRetrySchedulesFirstStage(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})
	ctx := context.Background()

	req, _ := entity.NewContentRequest("cr-retry", "demo-league", "2026", "weekly_recap", "", "")
	_ = req.MarkFailed(string(apperrors.CodeServiceUnavail), "upstream down")
	if err := fx.contentRepo.Save(ctx, req); err != nil {
		t.Fatal(err)
	}

	if err := fx.pipeline.RetryFailed(ctx, "cr-retry", 1); err != nil {
		t.Fatalf("RetryFailed() error = %v", err)
	}

	got, _ := fx.contentRepo.FindByID(ctx, "cr-retry")
	if got.Status != entity.ContentStatusGenerating {
		t.Errorf("status = %s, want generating", got.Status)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got.RetryCount)
	}
	if got.FailCode != "" {
		t.Errorf("fail code = %q, want cleared", got.FailCode)
	}

	task, ok := fx.sched.pop()
	if !ok || task.Kind != TaskPrepareData {
		t.Fatalf("scheduled task = %+v, want %s", task, TaskPrepareData)
	}
	// attempt 1 backs off 2^1 seconds
	if delay := time.Until(task.RunAt); delay < time.Second || delay > 3*time.Second {
		t.Errorf("retry delay ~%s, want about 2s", delay)
	}
}

func TestRetryCeilingIsPermanent(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})
	ctx := context.Background()

	req, _ := entity.NewContentRequest("cr-ceiling", "demo-league", "2026", "weekly_recap", "", "")
	_ = req.MarkFailed(string(apperrors.CodeServiceUnavail), "upstream down")
	req.RetryCount = 3
	if err := fx.contentRepo.Save(ctx, req); err != nil {
		t.Fatal(err)
	}

	err := fx.pipeline.RetryFailed(ctx, "cr-ceiling", 4)
	if !apperrors.HasCode(err, apperrors.CodeMaxRetriesExceeded) {
		t.Fatalf("error = %v, want MAX_RETRIES_EXCEEDED", err)
	}

	got, _ := fx.contentRepo.FindByID(ctx, "cr-ceiling")
	if got.Status != entity.ContentStatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.FailCode != string(apperrors.CodeMaxRetriesExceeded) {
		t.Errorf("fail code = %q, want MAX_RETRIES_EXCEEDED", got.FailCode)
	}
	if fx.sched.pending() != 0 {
		t.Error("nothing may be scheduled past the retry ceiling")
	}
}

func TestRetryRejectsNonFailedRequest(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})
	ctx := context.Background()

	req, _ := entity.NewContentRequest("cr-live", "demo-league", "2026", "weekly_recap", "", "")
	_ = fx.contentRepo.Save(ctx, req)

	if err := fx.pipeline.RetryFailed(ctx, "cr-live", 1); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("error = %v, want INVALID_INPUT", err)
	}
}

func TestRetryPastCeilingLeavesPublishedRequestAlone(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})
	ctx := context.Background()

	id, err := fx.pipeline.Submit(ctx, "weekly_recap", "", "demo-league", "2026", "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	fx.drain(t)

	req, _ := fx.contentRepo.FindByID(ctx, id)
	if req.Status != entity.ContentStatusPublished {
		t.Fatalf("status = %s, want published", req.Status)
	}
	req.RetryCount = 3
	_ = fx.contentRepo.Save(ctx, req)

	if err := fx.pipeline.RetryFailed(ctx, id, 4); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("error = %v, want INVALID_INPUT", err)
	}

	got, _ := fx.contentRepo.FindByID(ctx, id)
	if got.Status != entity.ContentStatusPublished {
		t.Errorf("status = %s, published must stay published", got.Status)
	}
	if got.FailCode != "" {
		t.Errorf("fail code = %q, want empty", got.FailCode)
	}
	if fx.sched.pending() != 0 {
		t.Error("nothing may be scheduled for a published request")
	}
}

func TestPersistCleanupIgnoresTerminalRequest(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})
	ctx := context.Background()

	req, _ := entity.NewContentRequest("cr-done", "demo-league", "2026", "weekly_recap", "", "")
	_ = req.MarkPublished("Original Title", "body", "summary", entity.ContentMetadata{})
	_ = fx.contentRepo.Save(ctx, req)

	err := fx.pipeline.PersistCleanup(ctx, PersistPayload{
		ContentRequestID: "cr-done",
		Title:            "Clobbered Title",
		Body:             "clobbered",
	})
	if err != nil {
		t.Fatalf("PersistCleanup() error = %v, late tasks must no-op", err)
	}

	got, _ := fx.contentRepo.FindByID(ctx, "cr-done")
	if got.Title != "Original Title" {
		t.Errorf("title = %q, a late task clobbered a published article", got.Title)
	}
}

func TestGenerateConsumesContributorResponses(t *testing.T) {
	fx := newPipelineFixture(t, &fakeLLM{structuredJSON: validArticleJSON})
	ctx := context.Background()

	id, err := fx.pipeline.Submit(ctx, "weekly_recap", "", "demo-league", "2026", "")
	if err != nil {
		t.Fatal(err)
	}

	resp, err := entity.NewCommentResponse("resp-1", "cmt-1", id, "demo-league", "user-alex")
	if err != nil {
		t.Fatal(err)
	}
	resp.Relevance = valueobject.RelevanceMetadata{ExtractedQuotes: []string{"we want the title"}}
	resp.EngagementLevel = entity.EngagementHigh
	if err := fx.store.Responses().Save(ctx, resp); err != nil {
		t.Fatal(err)
	}

	fx.drain(t)

	got, err := fx.store.Responses().FindByCommentRequest(ctx, "cmt-1")
	if err != nil {
		t.Fatalf("FindByCommentRequest() error = %v", err)
	}
	if got.IntegrationStatus != entity.IntegrationConsumed {
		t.Errorf("integration status = %s, want %s", got.IntegrationStatus, entity.IntegrationConsumed)
	}
}
