package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprofit/internal/catalog"
	"plantprofit/internal/config"
	"plantprofit/internal/embedding/tfidf"
	"plantprofit/internal/index"
	"plantprofit/internal/llm/extractive"
	"plantprofit/internal/service"
	"plantprofit/internal/summarizer"
	"plantprofit/internal/vectorstore"
	"plantprofit/internal/vectorstore/memory"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestOptimizeCommand(t *testing.T) {
	out, err := run(t, "optimize", "--acres", "10", "--budget", "50000")
	require.NoError(t, err)
	assert.Contains(t, out, "CROP")
	assert.Contains(t, out, "Almonds")
	assert.Contains(t, out, "Expected profit: $")
	assert.Contains(t, out, "Allocate")
}

func TestAskCommand(t *testing.T) {
	out, err := run(t, "ask", "--top-k", "2", "Tell", "me", "about", "almonds")
	require.NoError(t, err)
	assert.Contains(t, out, "perennial_almonds")
}

func TestIngestCommand(t *testing.T) {
	out, err := run(t, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 6 documents (backend: memory)")
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, "--store", "redis", "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown vector store: redis")
}

func TestOverridesFromEnvAndFlags(t *testing.T) {
	t.Setenv("PLANTPROFIT_SERVER_ADDR", ":9999")
	t.Setenv("PLANTPROFIT_DEBUG", "true")
	v := newViper()
	v.Set("vector_store.type", "qdrant")
	v.Set("generator.type", "openai")

	cfg := config.Default()
	applyOverrides(cfg, v)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, cfg.Debug)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "plantprofit", cfg.VectorStore.Qdrant.Collection)
	require.NotNil(t, cfg.Generator.OpenAI)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.OpenAI.Model)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
}

func newExternalRuntime(t *testing.T, external vectorstore.Storage) *runtime {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	sum := summarizer.NewFrequencySummarizer()
	fb := vectorstore.NewFallback(external, memory.NewStorage(), nil)
	return &runtime{
		svc: service.New(service.Deps{
			Catalog:    c,
			Index:      index.New(tfidf.NewEmbedder(), fb, nil),
			Generator:  extractive.New(sum, 3),
			Summarizer: sum,
			Risk:       config.DefaultRisk(),
		}),
		fallback: fb,
	}
}

func TestPrepareWithoutIngestServesStoredData(t *testing.T) {
	ctx := context.Background()
	external := memory.NewStorage()
	require.NoError(t, newExternalRuntime(t, external).prepare(ctx, true, 5))

	rt := newExternalRuntime(t, external)
	require.NoError(t, rt.prepare(ctx, false, 5))
	assert.Equal(t, index.Stats{Count: 6, Backend: vectorstore.BackendExternal}, rt.svc.IndexStatus())

	res, err := rt.svc.Query(ctx, "pistachios", 2)
	require.NoError(t, err)
	require.NotEmpty(t, res.Context)
	assert.Equal(t, "perennial_pistachios", res.Context[0].ID)
}
