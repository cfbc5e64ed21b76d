package usecase

import (
	"context"
	"time"
)

// Task kinds handled by the engine. Payloads carry entity IDs only; every
// handler re-reads the entity so it acts on the freshest state, never on
// values captured when the task was scheduled.
const (
	TaskPrepareData      = "content.prepare_data"
	TaskGenerate         = "content.generate"
	TaskPersistCleanup   = "content.persist_cleanup"
	TaskSendOpening      = "comment.send_opening"
	TaskProcessReply     = "comment.process_reply"
	TaskGenerateFollowUp = "comment.generate_follow_up"
	TaskExpire           = "comment.expire"
	TaskInactivityCheck  = "comment.inactivity_check"
)

// TaskScheduler is the slice of the durable scheduler the use-cases need.
type TaskScheduler interface {
	Schedule(ctx context.Context, kind string, payload any, runAt time.Time) (string, error)
	ScheduleAfter(ctx context.Context, kind string, payload any, delay time.Duration) (string, error)
}

// ContentTaskPayload identifies the content request a pipeline task acts on.
type ContentTaskPayload struct {
	ContentRequestID string `json:"content_request_id"`
}

// PersistPayload carries the generated draft from the generation step to the
// persistence step.
type PersistPayload struct {
	ContentRequestID string   `json:"content_request_id"`
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	Summary          string   `json:"summary"`
	FeaturedTeams    []string `json:"featured_teams,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Week             int      `json:"week"`
	CreditCost       int      `json:"credit_cost"`
	ModelUsed        string   `json:"model_used"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	GenerationMs     int64    `json:"generation_ms"`
}

// CommentTaskPayload identifies the comment request a conversation task acts
// on. MessageID is set only by reply-processing tasks.
type CommentTaskPayload struct {
	CommentRequestID string `json:"comment_request_id"`
	MessageID        string `json:"message_id,omitempty"`
}
