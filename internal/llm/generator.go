// Package llm defines the text generation contract used by the answerer.
package llm

import (
	"context"
	"fmt"

	"plantprofit/internal/domain"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single generation call. Documents carries the retrieved
// records the prompt was built from, for generators that work on them
// directly instead of on the prompt text.
type Request struct {
	Messages    []Message
	Documents   []domain.Document
	MaxTokens   int
	Temperature float64
}

// Generator produces a completion for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Unavailable stands in for a remote generator that could not be configured.
type Unavailable struct {
	Backend string
	Reason  string
}

func (u Unavailable) Name() string { return u.Backend }

func (u Unavailable) Generate(context.Context, Request) (string, error) {
	return "", fmt.Errorf("%s generator: %s: %w", u.Backend, u.Reason, domain.ErrServiceUnavailable)
}
