package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/pkg/safego"
)

// Notification is one outbound message to a league member.
type Notification struct {
	UserID           string `json:"user_id"`
	LeagueID         string `json:"league_id"`
	CommentRequestID string `json:"comment_request_id,omitempty"`
	Kind             string `json:"kind"` // opening_question, follow_up, conversation_ended, content_published
	Title            string `json:"title"`
	Body             string `json:"body"`
}

// Notification kinds.
const (
	KindOpeningQuestion   = "opening_question"
	KindFollowUp          = "follow_up"
	KindConversationEnded = "conversation_ended"
	KindContentPublished  = "content_published"
)

// Dispatcher delivers notifications fire-and-forget. Delivery failure is
// logged and never propagated; core state must not depend on whether a
// notification landed.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}

// LogDispatcher writes notifications to the log. Default in dev mode.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates the dispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With(zap.String("component", "notify"))}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) {
	d.logger.Info("Notification",
		zap.String("kind", n.Kind),
		zap.String("user_id", n.UserID),
		zap.String("league_id", n.LeagueID),
		zap.String("title", n.Title),
	)
}

// WebhookDispatcher POSTs notifications to a configured endpoint.
type WebhookDispatcher struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookDispatcher creates the dispatcher.
func NewWebhookDispatcher(url string, timeout time.Duration, logger *zap.Logger) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "notify")),
	}
}

// Dispatch posts the notification in a detached goroutine so callers never
// block on the webhook endpoint.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, n Notification) {
	safego.Go(d.logger, "notify.webhook", func() {
		body, err := json.Marshal(n)
		if err != nil {
			d.logger.Error("Failed to encode notification", zap.Error(err))
			return
		}

		req, err := http.NewRequest("POST", d.url, bytes.NewReader(body))
		if err != nil {
			d.logger.Error("Failed to build webhook request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			d.logger.Warn("Webhook delivery failed",
				zap.String("kind", n.Kind),
				zap.String("user_id", n.UserID),
				zap.Error(err),
			)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			d.logger.Warn("Webhook rejected notification",
				zap.String("kind", n.Kind),
				zap.Int("status", resp.StatusCode),
			)
		}
	})
}
