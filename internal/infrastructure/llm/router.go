package llm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/domain/service"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// completer is the single-model surface the router balances over. Satisfied
// by OpenAIProvider; tests substitute fakes.
type completer interface {
	CompleteText(ctx context.Context, model string, req *service.TextRequest) (*service.TextResult, error)
	CompleteStructured(ctx context.Context, model string, req *service.StructuredRequest) (*service.StructuredResult, error)
}

// RouterConfig names the models the router tries in order.
type RouterConfig struct {
	PrimaryModel  string
	FallbackModel string
}

// Router implements service.LLMClient over one provider with a primary and a
// fallback model. Each model carries its own circuit breaker: a model that
// keeps failing is skipped until its recovery timeout elapses. Structured and
// credential errors never trigger failover since a different model will not
// fix either.
type Router struct {
	provider completer
	cfg      RouterConfig
	logger   *zap.Logger

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRouter creates the router.
func NewRouter(provider completer, cfg RouterConfig, logger *zap.Logger) *Router {
	return &Router{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "llm_router")),
		breakers: make(map[string]*CircuitBreaker),
	}
}

var _ service.LLMClient = (*Router)(nil)

// GenerateText tries the primary model, then the fallback.
func (r *Router) GenerateText(ctx context.Context, req *service.TextRequest) (*service.TextResult, error) {
	var lastErr error
	for _, model := range r.candidates(req.Model) {
		breaker := r.breaker(model)
		if !breaker.Allow() {
			r.logger.Warn("Circuit open, skipping model", zap.String("model", model))
			continue
		}

		result, err := r.provider.CompleteText(ctx, model, req)
		if err == nil {
			breaker.RecordSuccess()
			return result, nil
		}
		breaker.RecordFailure()
		lastErr = err
		if !isFailoverable(err) {
			return nil, err
		}
		r.logger.Warn("Model failed, trying next",
			zap.String("model", model),
			zap.Error(err),
		)
	}
	return nil, r.exhausted(lastErr)
}

// GenerateStructured tries the primary model, then the fallback. A schema
// rejection surfaces as ErrStructuredOutput without failover so the caller
// can switch to the free-text path immediately.
func (r *Router) GenerateStructured(ctx context.Context, req *service.StructuredRequest) (*service.StructuredResult, error) {
	var lastErr error
	for _, model := range r.candidates(req.Model) {
		breaker := r.breaker(model)
		if !breaker.Allow() {
			r.logger.Warn("Circuit open, skipping model", zap.String("model", model))
			continue
		}

		result, err := r.provider.CompleteStructured(ctx, model, req)
		if err == nil {
			breaker.RecordSuccess()
			return result, nil
		}
		breaker.RecordFailure()
		lastErr = err
		if !isFailoverable(err) {
			return nil, err
		}
		r.logger.Warn("Model failed, trying next",
			zap.String("model", model),
			zap.Error(err),
		)
	}
	return nil, r.exhausted(lastErr)
}

// candidates returns the models to try in order. A request that pins a model
// gets only that model; otherwise primary then fallback.
func (r *Router) candidates(pinned string) []string {
	if pinned != "" {
		return []string{pinned}
	}
	models := []string{r.cfg.PrimaryModel}
	if r.cfg.FallbackModel != "" && r.cfg.FallbackModel != r.cfg.PrimaryModel {
		models = append(models, r.cfg.FallbackModel)
	}
	return models
}

func (r *Router) breaker(model string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	breaker, ok := r.breakers[model]
	if !ok {
		breaker = NewCircuitBreaker(5, 30*time.Second)
		r.breakers[model] = breaker
	}
	return breaker
}

func (r *Router) exhausted(lastErr error) error {
	if lastErr != nil {
		return domainErrors.Wrap(domainErrors.CodeServiceUnavail, "all models failed", lastErr)
	}
	return domainErrors.New(domainErrors.CodeServiceUnavail, "all model circuits open")
}
