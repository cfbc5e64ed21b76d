package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/domain/service"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// fakeCompleter returns canned results per model.
type fakeCompleter struct {
	textErrs  map[string]error
	structErr map[string]error
	calls     []string
}

func (f *fakeCompleter) CompleteText(ctx context.Context, model string, req *service.TextRequest) (*service.TextResult, error) {
	f.calls = append(f.calls, model)
	if err := f.textErrs[model]; err != nil {
		return nil, err
	}
	return &service.TextResult{Text: "from " + model, ModelUsed: model}, nil
}

func (f *fakeCompleter) CompleteStructured(ctx context.Context, model string, req *service.StructuredRequest) (*service.StructuredResult, error) {
	f.calls = append(f.calls, model)
	if err := f.structErr[model]; err != nil {
		return nil, err
	}
	return &service.StructuredResult{Raw: json.RawMessage(`{}`), ModelUsed: model}, nil
}

func newTestRouter(f *fakeCompleter) *Router {
	return NewRouter(f, RouterConfig{PrimaryModel: "primary", FallbackModel: "fallback"}, zap.NewNop())
}

func TestGenerateTextPrimarySucceeds(t *testing.T) {
	f := &fakeCompleter{}
	r := newTestRouter(f)

	result, err := r.GenerateText(context.Background(), &service.TextRequest{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if result.ModelUsed != "primary" {
		t.Fatalf("model used = %q, want primary", result.ModelUsed)
	}
	if len(f.calls) != 1 {
		t.Fatalf("calls = %v, want one", f.calls)
	}
}

func TestGenerateTextFailsOverOnServerError(t *testing.T) {
	f := &fakeCompleter{
		textErrs: map[string]error{
			"primary": &apiError{status: 500, body: "backend exploded"},
		},
	}
	r := newTestRouter(f)

	result, err := r.GenerateText(context.Background(), &service.TextRequest{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if result.ModelUsed != "fallback" {
		t.Fatalf("model used = %q, want fallback", result.ModelUsed)
	}
}

func TestGenerateTextFailsOverOnUnknownModel(t *testing.T) {
	f := &fakeCompleter{
		textErrs: map[string]error{
			"primary": &apiError{status: 404, body: "model not found"},
		},
	}
	r := newTestRouter(f)

	result, err := r.GenerateText(context.Background(), &service.TextRequest{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if result.ModelUsed != "fallback" {
		t.Fatalf("model used = %q, want fallback", result.ModelUsed)
	}
}

func TestMissingCredentialDoesNotFailOver(t *testing.T) {
	f := &fakeCompleter{
		textErrs: map[string]error{
			"primary": domainErrors.New(domainErrors.CodeMissingCredential, "no key"),
		},
	}
	r := newTestRouter(f)

	_, err := r.GenerateText(context.Background(), &service.TextRequest{UserPrompt: "hi"})
	if !domainErrors.HasCode(err, domainErrors.CodeMissingCredential) {
		t.Fatalf("error = %v, want MISSING_CREDENTIAL", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("calls = %v, fallback should not have been tried", f.calls)
	}
}

func TestStructuredErrorDoesNotFailOver(t *testing.T) {
	f := &fakeCompleter{
		structErr: map[string]error{
			"primary": service.ErrStructuredOutput,
		},
	}
	r := newTestRouter(f)

	_, err := r.GenerateStructured(context.Background(), &service.StructuredRequest{UserPrompt: "hi"})
	if !errors.Is(err, service.ErrStructuredOutput) {
		t.Fatalf("error = %v, want ErrStructuredOutput", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("calls = %v, fallback should not have been tried", f.calls)
	}
}

func TestAllModelsFailing(t *testing.T) {
	f := &fakeCompleter{
		textErrs: map[string]error{
			"primary":  &apiError{status: 500, body: "down"},
			"fallback": &apiError{status: 503, body: "also down"},
		},
	}
	r := newTestRouter(f)

	_, err := r.GenerateText(context.Background(), &service.TextRequest{UserPrompt: "hi"})
	if !domainErrors.HasCode(err, domainErrors.CodeServiceUnavail) {
		t.Fatalf("error = %v, want SERVICE_UNAVAILABLE", err)
	}
}

func TestPinnedModelBypassesFallback(t *testing.T) {
	f := &fakeCompleter{
		textErrs: map[string]error{
			"pinned": &apiError{status: 500, body: "down"},
		},
	}
	r := newTestRouter(f)

	_, err := r.GenerateText(context.Background(), &service.TextRequest{Model: "pinned", UserPrompt: "hi"})
	if err == nil {
		t.Fatal("expected error from pinned model")
	}
	if len(f.calls) != 1 || f.calls[0] != "pinned" {
		t.Fatalf("calls = %v, want only pinned", f.calls)
	}
}

func TestOpenCircuitSkipsModel(t *testing.T) {
	f := &fakeCompleter{
		textErrs: map[string]error{
			"primary": &apiError{status: 500, body: "down"},
		},
	}
	r := newTestRouter(f)

	// Trip the primary breaker.
	for i := 0; i < 5; i++ {
		if _, err := r.GenerateText(context.Background(), &service.TextRequest{UserPrompt: "hi"}); err != nil {
			t.Fatalf("GenerateText() error = %v, fallback should have answered", err)
		}
	}
	if r.breaker("primary").State() != CircuitOpen {
		t.Fatalf("primary circuit = %v, want open", r.breaker("primary").State())
	}

	f.calls = nil
	result, err := r.GenerateText(context.Background(), &service.TextRequest{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if result.ModelUsed != "fallback" {
		t.Fatalf("model used = %q, want fallback", result.ModelUsed)
	}
	if len(f.calls) != 1 || f.calls[0] != "fallback" {
		t.Fatalf("calls = %v, primary should have been skipped", f.calls)
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized", 401, "bad key", func(err error) bool {
			return domainErrors.HasCode(err, domainErrors.CodeMissingCredential)
		}},
		{"schema rejected", 400, `{"error":"response_format is not supported"}`, func(err error) bool {
			return errors.Is(err, service.ErrStructuredOutput)
		}},
		{"plain bad request", 400, "invalid prompt", func(err error) bool {
			var apiErr *apiError
			return errors.As(err, &apiErr) && !isFailoverable(err)
		}},
		{"rate limited", 429, "slow down", func(err error) bool {
			return isFailoverable(err)
		}},
		{"server error", 502, "bad gateway", func(err error) bool {
			return isFailoverable(err)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyStatus(tc.status, []byte(tc.body))
			if !tc.check(err) {
				t.Errorf("classifyStatus(%d) = %v, classification wrong", tc.status, err)
			}
		})
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	if cb.Allow() {
		t.Fatal("open circuit allowed a call before recovery timeout")
	}

	time.Sleep(15 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("circuit did not allow probe after recovery timeout")
	}
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Fatalf("state = %v, want closed after probe success", cb.State())
	}
}
