package llm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/domain/service"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// ProviderConfig configures one OpenAI-compatible endpoint.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// OpenAIProvider is a Go-native OpenAI-compatible HTTP client.
// Compatible with OpenAI, DeepSeek, Ollama, vLLM and other endpoints that
// speak the chat/completions wire format.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewOpenAIProvider creates the client.
func NewOpenAIProvider(cfg ProviderConfig, logger *zap.Logger) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &OpenAIProvider{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Transport: transport},
		logger:  logger.With(zap.String("component", "llm")),
	}
}

// apiRequest is the chat/completions wire format.
type apiRequest struct {
	Model          string          `json:"model"`
	Messages       []apiMessage    `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// CompleteText runs a plain chat completion against one model.
func (p *OpenAIProvider) CompleteText(ctx context.Context, model string, req *service.TextRequest) (*service.TextResult, error) {
	apiReq := &apiRequest{
		Model:       model,
		Messages:    buildMessages(req.SystemPrompt, req.UserPrompt),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	started := time.Now()
	content, usage, err := p.complete(ctx, apiReq)
	if err != nil {
		return nil, err
	}
	return &service.TextResult{
		Text:             content,
		ModelUsed:        model,
		PromptTokens:     usage.prompt,
		CompletionTokens: usage.completion,
		Latency:          time.Since(started),
	}, nil
}

// CompleteStructured runs a schema-constrained completion against one model.
// The returned raw payload is already validated as JSON; schema violations
// surface as ErrStructuredOutput so the caller can fall back to free text.
func (p *OpenAIProvider) CompleteStructured(ctx context.Context, model string, req *service.StructuredRequest) (*service.StructuredResult, error) {
	apiReq := &apiRequest{
		Model:       model,
		Messages:    buildMessages(req.SystemPrompt, req.UserPrompt),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   req.Schema.Name,
				Schema: req.Schema.Schema,
				Strict: req.Schema.Strict,
			},
		},
	}

	started := time.Now()
	content, usage, err := p.complete(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	var probe map[string]any
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		return nil, fmt.Errorf("%w: model returned non-JSON content", service.ErrStructuredOutput)
	}

	return &service.StructuredResult{
		Raw:              json.RawMessage(content),
		ModelUsed:        model,
		PromptTokens:     usage.prompt,
		CompletionTokens: usage.completion,
		Latency:          time.Since(started),
	}, nil
}

type tokenUsage struct {
	prompt     int
	completion int
}

func (p *OpenAIProvider) complete(ctx context.Context, apiReq *apiRequest) (string, tokenUsage, error) {
	if p.apiKey == "" {
		return "", tokenUsage{}, domainErrors.New(domainErrors.CodeMissingCredential, "llm api key is not configured")
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", tokenUsage{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", tokenUsage{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", tokenUsage{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", tokenUsage{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", tokenUsage{}, classifyStatus(resp.StatusCode, respBody)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", tokenUsage{}, fmt.Errorf("parse response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", tokenUsage{}, fmt.Errorf("empty response: no choices")
	}

	usage := tokenUsage{
		prompt:     apiResp.Usage.PromptTokens,
		completion: apiResp.Usage.CompletionTokens,
	}
	return apiResp.Choices[0].Message.Content, usage, nil
}

func buildMessages(systemPrompt, userPrompt string) []apiMessage {
	var msgs []apiMessage
	if systemPrompt != "" {
		msgs = append(msgs, apiMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, apiMessage{Role: "user", Content: userPrompt})
	return msgs
}
