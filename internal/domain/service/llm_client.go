package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrStructuredOutput signals that schema-constrained generation failed in a
// way the free-text fallback path can recover from (provider rejected the
// schema, or the payload did not validate). Distinct from transport errors.
var ErrStructuredOutput = errors.New("structured output unavailable")

// JSONSchema is a provider-agnostic JSON schema definition passed to
// structured generation.
type JSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

// StructuredRequest asks for schema-constrained generation.
type StructuredRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Schema       JSONSchema
	MaxTokens    int
	Temperature  float64
}

// TextRequest asks for free-text generation.
type TextRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// TextResult carries generated text plus the bookkeeping the pipeline stores
// on the finished article.
type TextResult struct {
	Text             string
	ModelUsed        string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// StructuredResult carries validated JSON plus the same bookkeeping.
type StructuredResult struct {
	Raw              json.RawMessage
	ModelUsed        string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// LLMClient is the domain-facing language model interface. Implementations
// live in infrastructure (HTTP providers behind a fallback router); domain
// and application code depend only on this.
type LLMClient interface {
	// GenerateStructured produces JSON conforming to the schema, or
	// ErrStructuredOutput when the caller should fall back to free text.
	GenerateStructured(ctx context.Context, req *StructuredRequest) (*StructuredResult, error)

	// GenerateText produces free-form text.
	GenerateText(ctx context.Context, req *TextRequest) (*TextResult, error)
}
