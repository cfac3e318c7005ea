// Package openai provides a chat completions client for OpenAI-compatible APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"plantprofit/internal/domain"
	"plantprofit/internal/llm"
	"plantprofit/internal/metrics"
	"plantprofit/internal/upstream"
)

var _ llm.Generator = (*Client)(nil)

// Config configures the chat client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Metrics           *metrics.Metrics
}

// Client calls /chat/completions.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *upstream.Client
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient reads the API key from cfg.APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  key,
		model:   cfg.Model,
		http: upstream.New("openai-chat", upstream.Options{
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Metrics:           cfg.Metrics,
		}),
	}, nil
}

func (c *Client) Name() string { return "openai" }

// Generate sends the messages and returns the first choice's content.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(ctx, httpReq, map[string]any{"model": c.model, "messages": len(req.Messages), "max_tokens": req.MaxTokens})
	if err != nil {
		return "", err
	}
	if err := c.http.Check(resp); err != nil {
		return "", err
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode response: %v: %w", err, domain.ErrServiceUnavailable)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai error: %s: %w", out.Error.Message, domain.ErrServiceUnavailable)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned: %w", domain.ErrServiceUnavailable)
	}
	return out.Choices[0].Message.Content, nil
}
