// Package llm talks to an OpenAI-compatible chat completions endpoint and
// turns its answers into edit proposals for the patch engine.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	// RoleSystem, RoleUser and RoleAssistant are the chat roles the API knows.
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	defaultMaxTokens = 8000
)

// Message is one chat turn sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces a completion for a conversation. Implementations return
// the raw assistant text; proposal parsing happens separately.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// OpenAIClient speaks the OpenAI chat completions wire format, which
// DeepSeek and most hosted models also accept.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

// OpenAIOptions configures an OpenAIClient.
type OpenAIOptions struct {
	// BaseURL is the API root, e.g. "https://api.deepseek.com".
	BaseURL string
	APIKey  string
	Model   string
	// MaxTokens caps the completion length; 0 means the default.
	MaxTokens int
}

// NewOpenAIClient creates a client for one model endpoint.
func NewOpenAIClient(opts OpenAIOptions, httpClient *http.Client, logger *zap.Logger) (*OpenAIClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("llm base URL is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		maxTokens:  maxTokens,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

var _ Provider = (*OpenAIClient)(nil)

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	MaxTokens      int            `json:"max_tokens"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the conversation and returns the assistant's raw text.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: responseFormat{Type: "json_object"},
		MaxTokens:      c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("completion response is not JSON (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}

	content := parsed.Choices[0].Message.Content
	c.logger.Debug("completion received",
		zap.String("model", c.model),
		zap.Int("bytes", len(content)))
	return content, nil
}
