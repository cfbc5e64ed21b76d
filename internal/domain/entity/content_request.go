package entity

import (
	"time"
)

// ContentStatus is the coarse lifecycle of an article-generation job.
type ContentStatus string

const (
	ContentStatusGenerating ContentStatus = "generating"
	ContentStatusPublished  ContentStatus = "published"
	ContentStatusFailed     ContentStatus = "failed"
)

// IsTerminal reports whether the status admits no further pipeline steps.
func (s ContentStatus) IsTerminal() bool {
	return s == ContentStatusPublished || s == ContentStatusFailed
}

// ContentMetadata carries the generation bookkeeping stored alongside the
// finished article.
type ContentMetadata struct {
	Week             int      `json:"week,omitempty"`
	FeaturedTeams    []string `json:"featured_teams,omitempty"`
	FeaturedPlayers  []string `json:"featured_players,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	CreditCost       int      `json:"credit_cost,omitempty"`
	ModelUsed        string   `json:"model_used,omitempty"`
	PromptTokens     int      `json:"prompt_tokens,omitempty"`
	CompletionTokens int      `json:"completion_tokens,omitempty"`
	GenerationMs     int64    `json:"generation_ms,omitempty"`
}

// ContentRequest is the aggregate root for one article-generation job.
//
// Lifecycle: created in generating by Submit, reaches exactly one terminal
// status (published or failed) through the pipeline. Re-entering generating
// happens only through an explicit retry attempt with a fresh counter.
type ContentRequest struct {
	ID          string
	LeagueID    string
	SeasonID    string
	ContentType string
	Persona     string

	Status  ContentStatus
	Title   string
	Body    string
	Summary string

	Metadata      ContentMetadata
	CustomContext string

	// PreparedData is the transient payload cached between PrepareData and
	// Generate. Cleared on publish so the store does not accumulate stale
	// multi-kilobyte blobs.
	PreparedData []byte

	RetryCount int
	FailCode   string
	FailReason string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// NewContentRequest creates a job in the generating state.
func NewContentRequest(id, leagueID, seasonID, contentType, persona, customContext string) (*ContentRequest, error) {
	if id == "" {
		return nil, ErrInvalidContentRequestID
	}
	if leagueID == "" {
		return nil, ErrInvalidLeagueID
	}
	if contentType == "" {
		return nil, ErrInvalidContentType
	}

	now := time.Now()
	return &ContentRequest{
		ID:            id,
		LeagueID:      leagueID,
		SeasonID:      seasonID,
		ContentType:   contentType,
		Persona:       persona,
		CustomContext: customContext,
		Status:        ContentStatusGenerating,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// MarkPublished applies the single allowed success transition. It refuses to
// overwrite a terminal state so a late-firing step cannot clobber a finished
// article.
func (c *ContentRequest) MarkPublished(title, body, summary string, meta ContentMetadata) error {
	if c.Status.IsTerminal() {
		return ErrTerminalContentStatus
	}
	now := time.Now()
	c.Status = ContentStatusPublished
	c.Title = title
	c.Body = body
	c.Summary = summary
	c.Metadata = meta
	c.PreparedData = nil
	c.PublishedAt = &now
	c.UpdatedAt = now
	return nil
}

// MarkFailed applies the single allowed failure transition, recording the
// error taxonomy code and a human-readable cause.
func (c *ContentRequest) MarkFailed(code, reason string) error {
	if c.Status.IsTerminal() {
		return ErrTerminalContentStatus
	}
	c.Status = ContentStatusFailed
	c.FailCode = code
	c.FailReason = reason
	c.UpdatedAt = time.Now()
	return nil
}

// BeginRetry re-enters generating with a fresh attempt counter. Only failed
// requests can be retried.
func (c *ContentRequest) BeginRetry(attempt int) error {
	if c.Status != ContentStatusFailed {
		return ErrNotRetryable
	}
	c.Status = ContentStatusGenerating
	c.RetryCount = attempt
	c.FailCode = ""
	c.FailReason = ""
	c.UpdatedAt = time.Now()
	return nil
}
