package vectorstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprofit/internal/domain"
	"plantprofit/internal/metrics"
	"plantprofit/internal/vectorstore"
	"plantprofit/internal/vectorstore/memory"
)

type flakyStore struct {
	inner      *memory.Storage
	failUpsert bool
	failQuery  bool
	queries    int
}

func (f *flakyStore) Name() string { return "flaky" }

func (f *flakyStore) UpsertAll(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	if f.failUpsert {
		return errors.New("connection refused")
	}
	return f.inner.UpsertAll(ctx, docs, vectors)
}

func (f *flakyStore) Query(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	f.queries++
	if f.failQuery {
		return nil, errors.New("timeout")
	}
	return f.inner.Query(ctx, vector, topK)
}

var testDocs = []domain.Document{{ID: "annual_corn"}, {ID: "annual_cotton"}}
var testVectors = [][]float64{{1, 0}, {0, 1}}

func TestFallbackServesExternalWhenHealthy(t *testing.T) {
	ext := &flakyStore{inner: memory.NewStorage()}
	f := vectorstore.NewFallback(ext, memory.NewStorage(), nil)
	assert.Equal(t, vectorstore.BackendMemory, f.Backend())

	require.NoError(t, f.UpsertAll(context.Background(), testDocs, testVectors))
	assert.Equal(t, vectorstore.BackendExternal, f.Backend())

	results, err := f.Query(context.Background(), []float64{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "annual_corn", results[0].Document.ID)
	assert.Equal(t, 1, ext.queries)
}

func TestFallbackOnUpsertFailure(t *testing.T) {
	m := metrics.New("test")
	ext := &flakyStore{inner: memory.NewStorage(), failUpsert: true}
	f := vectorstore.NewFallback(ext, memory.NewStorage(), m)

	require.NoError(t, f.UpsertAll(context.Background(), testDocs, testVectors), "external failure is not surfaced")
	assert.Equal(t, vectorstore.BackendMemory, f.Backend())

	results, err := f.Query(context.Background(), []float64{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "annual_cotton", results[0].Document.ID)
	assert.Equal(t, 0, ext.queries, "stale external store is not consulted")
	count, err := testutil.GatherAndCount(m.Registry(), "test_vectorstore_fallbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFallbackOnQueryFailure(t *testing.T) {
	ext := &flakyStore{inner: memory.NewStorage()}
	f := vectorstore.NewFallback(ext, memory.NewStorage(), nil)
	require.NoError(t, f.UpsertAll(context.Background(), testDocs, testVectors))

	ext.failQuery = true
	results, err := f.Query(context.Background(), []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "annual_corn", results[0].Document.ID)
	assert.Equal(t, vectorstore.BackendExternal, f.Backend(), "a failed query does not demote the external store")
}

func TestAdoptExternal(t *testing.T) {
	ext := &flakyStore{inner: memory.NewStorage()}
	require.NoError(t, ext.inner.UpsertAll(context.Background(), testDocs, testVectors))
	f := vectorstore.NewFallback(ext, memory.NewStorage(), nil)
	f.AdoptExternal()

	results, err := f.Query(context.Background(), []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "annual_corn", results[0].Document.ID)
}

func TestFallbackStageIsInvisibleUntilPublished(t *testing.T) {
	ctx := context.Background()
	ext := &flakyStore{inner: memory.NewStorage()}
	f := vectorstore.NewFallback(ext, memory.NewStorage(), nil)
	require.NoError(t, f.UpsertAll(ctx, testDocs, testVectors))

	publish, err := vectorstore.Stage(ctx, f, testDocs[:1], testVectors[:1])
	require.NoError(t, err)
	results, err := f.Query(ctx, []float64{0, 1}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	require.NoError(t, publish(ctx))
	results, err = f.Query(ctx, []float64{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "annual_corn", results[0].Document.ID)
	assert.Equal(t, vectorstore.BackendExternal, f.Backend())
}
