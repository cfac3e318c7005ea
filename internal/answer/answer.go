// Package answer runs retrieval-augmented question answering over the crop index.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plantprofit/internal/domain"
	"plantprofit/internal/index"
	"plantprofit/internal/llm"
	"plantprofit/internal/logging"
)

const (
	DefaultTopK = 3
	MaxTopK     = 50
	maxTokens   = 600
)

const systemPrompt = "You are PlantProfit Assistant. Answer concisely with a recommended plan and include citations from the provided CONTEXT when relevant. Return JSON with fields: answer (string), sources (array of {id, score})."

// Stage names a step of the answering pipeline.
type Stage string

const (
	StageEmbedQuery      Stage = "embed_query"
	StageRetrieveContext Stage = "retrieve_context"
	StageBuildPrompt     Stage = "build_prompt"
	StageGenerate        Stage = "generate"
	StagePostprocess     Stage = "postprocess"
	StageDone            Stage = "done"
)

// StageError reports the pipeline step a failure happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Retriever finds the documents closest to a free-text query.
type Retriever interface {
	Search(ctx context.Context, text string, k int) ([]domain.SearchResult, error)
}

// Result is what a query returns to the caller.
type Result struct {
	Answer  string            `json:"answer"`
	Context []domain.ScoredID `json:"context"`
}

// Answerer wires retrieval to generation.
type Answerer struct {
	retriever Retriever
	generator llm.Generator
}

func New(retriever Retriever, generator llm.Generator) *Answerer {
	return &Answerer{retriever: retriever, generator: generator}
}

// Generator returns the configured generator.
func (a *Answerer) Generator() llm.Generator { return a.generator }

// Answer runs EMBED_QUERY, RETRIEVE_CONTEXT, BUILD_PROMPT, GENERATE and
// POSTPROCESS in order. topK outside [1, MaxTopK] is clamped, zero means DefaultTopK.
func (a *Answerer) Answer(ctx context.Context, query string, topK int) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, &StageError{Stage: StageEmbedQuery, Err: fmt.Errorf("missing query: %w", domain.ErrInvalidInput)}
	}
	topK = clampTopK(topK)

	logging.Debugf("answer", "stage=%s topK=%d", StageEmbedQuery, topK)
	results, err := a.retriever.Search(ctx, query, topK)
	if err != nil {
		stage := StageRetrieveContext
		var embedErr *index.EmbedError
		if errors.As(err, &embedErr) {
			stage = StageEmbedQuery
		}
		return Result{}, &StageError{Stage: stage, Err: err}
	}
	logging.Debugf("answer", "stage=%s hits=%d", StageRetrieveContext, len(results))

	messages := BuildPrompt(query, results)
	logging.Debugf("answer", "stage=%s chars=%d", StageBuildPrompt, len(messages[1].Content))

	docs := make([]domain.Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	raw, err := a.generator.Generate(ctx, llm.Request{Messages: messages, Documents: docs, MaxTokens: maxTokens})
	if err != nil {
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			err = fmt.Errorf("%v: %w", err, domain.ErrServiceUnavailable)
		}
		return Result{}, &StageError{Stage: StageGenerate, Err: err}
	}
	logging.Debugf("answer", "stage=%s generator=%s", StageGenerate, a.generator.Name())

	answer := Clean(raw)
	logging.Debugf("answer", "stage=%s", StageDone)
	return Result{Answer: answer, Context: domain.IDs(results)}, nil
}

// BuildPrompt assembles the system and user messages for a query and its context.
func BuildPrompt(query string, results []domain.SearchResult) []llm.Message {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = "### " + r.Document.ID + "\n" + r.Document.Text
	}
	user := "QUERY: " + query + "\n\nCONTEXT:\n" + strings.Join(blocks, "\n\n")
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}

func clampTopK(k int) int {
	switch {
	case k <= 0:
		return DefaultTopK
	case k > MaxTopK:
		return MaxTopK
	default:
		return k
	}
}
