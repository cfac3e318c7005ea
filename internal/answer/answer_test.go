package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprofit/internal/catalog"
	"plantprofit/internal/domain"
	"plantprofit/internal/embedding/tfidf"
	"plantprofit/internal/index"
	"plantprofit/internal/llm"
	"plantprofit/internal/llm/extractive"
	"plantprofit/internal/optimizer"
	"plantprofit/internal/summarizer"
	"plantprofit/internal/vectorstore/memory"
)

type stubRetriever struct {
	results []domain.SearchResult
	err     error
	lastK   int
}

func (s *stubRetriever) Search(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	s.lastK = k
	return s.results, s.err
}

type stubGenerator struct {
	reply string
	err   error
	last  llm.Request
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Plant corn. yield: 180 tons/acre", Clean(`{"answer": "Plant corn. yield: 180"}`))
	assert.Equal(t, "Plant 40 acres of cotton", Clean("```json\n{\"answer\": \"Plant 40 acres of [cotton]\"}\n```"))
	assert.Equal(t, "plain reply", Clean("  plain reply  "))
	assert.Equal(t, "line one line two", Clean(`"line one\nline two"`))
}

func TestTryParseJSON(t *testing.T) {
	obj, ok := TryParseJSON("```json\n{\"answer\":\"x\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "x", obj["answer"])

	_, ok = TryParseJSON("not json")
	assert.False(t, ok)
	_, ok = TryParseJSON(`[1,2]`)
	assert.False(t, ok)
}

func TestBuildPrompt(t *testing.T) {
	msgs := BuildPrompt("what now?", []domain.SearchResult{
		{Document: domain.Document{ID: "annual_corn", Text: "corn"}},
		{Document: domain.Document{ID: "annual_cotton", Text: "cotton"}},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, systemPrompt, msgs[0].Content)
	assert.Equal(t, "QUERY: what now?\n\nCONTEXT:\n### annual_corn\ncorn\n\n### annual_cotton\ncotton", msgs[1].Content)
}

func TestAnswerPassesContextAndCleans(t *testing.T) {
	retriever := &stubRetriever{results: []domain.SearchResult{
		{Document: domain.Document{ID: "annual_corn", Text: "corn"}, Score: 0.9},
	}}
	gen := &stubGenerator{reply: `{"answer":"Grow corn, yield: 180","sources":[{"id":"annual_corn"}]}`}

	res, err := New(retriever, gen).Answer(context.Background(), "  what should I plant?  ", 0)
	require.NoError(t, err)
	assert.Equal(t, "Grow corn, yield: 180 tons/acre", res.Answer)
	assert.Equal(t, []domain.ScoredID{{ID: "annual_corn", Score: 0.9}}, res.Context)
	assert.Equal(t, DefaultTopK, retriever.lastK)
	assert.Equal(t, maxTokens, gen.last.MaxTokens)
	require.Len(t, gen.last.Documents, 1)
	assert.True(t, strings.HasPrefix(gen.last.Messages[1].Content, "QUERY: what should I plant?"))
}

func TestAnswerClampsTopK(t *testing.T) {
	retriever := &stubRetriever{}
	_, err := New(retriever, &stubGenerator{reply: "ok"}).Answer(context.Background(), "q", 500)
	require.NoError(t, err)
	assert.Equal(t, MaxTopK, retriever.lastK)
}

func TestAnswerStages(t *testing.T) {
	stageOf := func(err error) Stage {
		var se *StageError
		require.True(t, errors.As(err, &se))
		return se.Stage
	}

	_, err := New(&stubRetriever{}, &stubGenerator{}).Answer(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, StageEmbedQuery, stageOf(err))

	embedFail := &stubRetriever{err: &index.EmbedError{Err: fmt.Errorf("quota: %w", domain.ErrServiceUnavailable)}}
	_, err = New(embedFail, &stubGenerator{}).Answer(context.Background(), "q", 3)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, StageEmbedQuery, stageOf(err))

	storeFail := &stubRetriever{err: errors.New("disk on fire")}
	_, err = New(storeFail, &stubGenerator{}).Answer(context.Background(), "q", 3)
	assert.Equal(t, StageRetrieveContext, stageOf(err))

	_, err = New(&stubRetriever{}, &stubGenerator{err: errors.New("503 from upstream")}).Answer(context.Background(), "q", 3)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, StageGenerate, stageOf(err))
}

func TestAnswerOverEmptyIndex(t *testing.T) {
	ix := index.New(tfidf.NewEmbedder(), memory.NewStorage(), nil)
	_, err := ix.UpsertAll(context.Background(), nil)
	require.NoError(t, err)

	gen := extractive.New(summarizer.NewFrequencySummarizer(), 3)
	res, err := New(ix, gen).Answer(context.Background(), "what should I plant?", 3)
	require.NoError(t, err)
	assert.Empty(t, res.Context)
	assert.NotEmpty(t, res.Answer)
}

func TestAnswerOverCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	ix := index.New(tfidf.NewEmbedder(), memory.NewStorage(), nil)
	_, err = ix.UpsertAll(context.Background(), c.Documents())
	require.NoError(t, err)

	gen := extractive.New(summarizer.NewFrequencySummarizer(), 3)
	res, err := New(ix, gen).Answer(context.Background(), "How much do almonds cost to establish?", 2)
	require.NoError(t, err)
	require.NotEmpty(t, res.Context)
	assert.LessOrEqual(t, len(res.Context), 2)
	assert.Equal(t, "perennial_almonds", res.Context[0].ID)
	assert.NotContains(t, res.Answer, "{")
}

func TestExplain(t *testing.T) {
	gen := &stubGenerator{reply: "```json\n{\"answer\": \"Plant \\\"A\\\" everywhere.\"}\n```"}
	plan := optimizer.Plan{
		Allocations: []optimizer.Allocation{{Key: "A", Acres: 10, ProfitPerAcre: 100}, {Key: "B", Acres: 0, ProfitPerAcre: 50}},
		TotalProfit: 1000,
	}
	model := []map[string]any{{"key": "A"}, {"key": "B"}}

	text, err := New(&stubRetriever{}, gen).Explain(context.Background(), model, plan)
	require.NoError(t, err)
	assert.Equal(t, "Plant A everywhere.", text)

	require.Len(t, gen.last.Messages, 1)
	assert.Equal(t, "user", gen.last.Messages[0].Role)
	assert.Contains(t, gen.last.Messages[0].Content, `Given the farm model: [{"key":"A"},{"key":"B"}] and optimization allocation: [{"key":"A","acres":10,"profitPerAcre":100}`)
	assert.InDelta(t, 0.7, gen.last.Temperature, 1e-9)
	require.Len(t, gen.last.Documents, 2)
	assert.Equal(t, "Allocate 10 acres to A at $100 profit per acre.", gen.last.Documents[0].Text)
}

func TestExplainGeneratorFailure(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("no key: %w", domain.ErrServiceUnavailable)}
	_, err := New(&stubRetriever{}, gen).Explain(context.Background(), nil, optimizer.Plan{})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
