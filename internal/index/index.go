// Package index keeps one consistent version of the document embeddings and
// answers similarity queries against it.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"plantprofit/internal/domain"
	"plantprofit/internal/embedding"
	"plantprofit/internal/logging"
	"plantprofit/internal/metrics"
	"plantprofit/internal/vectorstore"
)

// EmbedError marks a failure to embed the query text, as opposed to a
// failure of the vector store.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string { return "embed query: " + e.Err.Error() }
func (e *EmbedError) Unwrap() error { return e.Err }

// Stats describes a committed upsert.
type Stats struct {
	Count   int    `json:"count"`
	Backend string `json:"backend"`
}

// Index pairs an embedder with a vector store. Writers are serialized and
// build the next version without blocking readers; the commit itself swaps
// store contents, embedder and document list together.
type Index struct {
	writeMu sync.Mutex

	mu       sync.RWMutex
	embedder embedding.Embedder
	docs     []domain.Document

	store   vectorstore.Storage
	metrics *metrics.Metrics
}

// New wraps embedder with unit annotation and binds it to store.
func New(embedder embedding.Embedder, store vectorstore.Storage, m *metrics.Metrics) *Index {
	return &Index{embedder: embedding.Annotate(embedder), store: store, metrics: m}
}

// UpsertAll embeds every document and then replaces the index contents.
// Any embedding failure aborts before anything is committed. The store
// write is staged outside the read lock; only publishing it and swapping
// embedder and documents block readers.
func (ix *Index) UpsertAll(ctx context.Context, docs []domain.Document) (Stats, error) {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	next, err := ix.fitted(docs)
	if err != nil {
		return Stats{}, err
	}
	vectors := make([][]float64, len(docs))
	for i, d := range docs {
		v, err := next.Embed(ctx, d.Text)
		if err != nil {
			return Stats{}, fmt.Errorf("embed %s: %w", d.ID, err)
		}
		vectors[i] = v
	}

	committed := append([]domain.Document(nil), docs...)
	publish, err := vectorstore.Stage(ctx, ix.store, committed, vectors)
	if err != nil {
		return Stats{}, fmt.Errorf("store upsert: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := publish(ctx); err != nil {
		return Stats{}, fmt.Errorf("store upsert: %w", err)
	}
	ix.commitLocked(next, committed)
	logging.Infof("index", "committed %d documents (%s, %s)", len(committed), next.Name(), ix.backendLocked())
	return Stats{Count: len(committed), Backend: ix.backendLocked()}, nil
}

// Adopt takes docs as the committed corpus without writing to the store,
// for a store another process already populated from the same catalog. A
// corpus-fitted embedder is fitted on docs so query vectors line up with
// the stored ones.
func (ix *Index) Adopt(docs []domain.Document) (Stats, error) {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	next, err := ix.fitted(docs)
	if err != nil {
		return Stats{}, err
	}
	committed := append([]domain.Document(nil), docs...)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.commitLocked(next, committed)
	logging.Infof("index", "adopted %d documents (%s, %s)", len(committed), next.Name(), ix.backendLocked())
	return Stats{Count: len(committed), Backend: ix.backendLocked()}, nil
}

// fitted returns the embedder to use for docs: a freshly fitted one when
// the current embedder learns from its corpus, the current one otherwise.
func (ix *Index) fitted(docs []domain.Document) (embedding.Embedder, error) {
	ix.mu.RLock()
	current := ix.embedder
	ix.mu.RUnlock()

	f, ok := current.(embedding.Fitter)
	if !ok {
		return current, nil
	}
	corpus := make([]string, len(docs))
	for i, d := range docs {
		corpus[i] = d.Text
	}
	next, err := f.Fit(corpus)
	if err != nil {
		return nil, fmt.Errorf("fit %s embedder: %w", current.Name(), err)
	}
	return next, nil
}

func (ix *Index) commitLocked(next embedding.Embedder, docs []domain.Document) {
	ix.embedder = next
	ix.docs = docs
	ix.metrics.SetIndexDocuments(len(docs))
}

// Query returns at most k hits for vector, highest cosine first.
func (ix *Index) Query(ctx context.Context, vector []float64, k int) ([]domain.ScoredID, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	results, err := ix.store.Query(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	return domain.IDs(results), nil
}

// Search embeds text and returns the k closest documents. When the query
// carries no signal for the embedder (zero vector, or nothing scores above
// zero) it falls back to token overlap over the committed documents.
func (ix *Index) Search(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, domain.ErrServiceUnavailable) && !errors.Is(err, domain.ErrInvalidInput) {
			err = fmt.Errorf("%v: %w", err, domain.ErrServiceUnavailable)
		}
		return nil, &EmbedError{Err: err}
	}
	if isZero(vec) {
		return lexicalSearch(ix.docs, text, k), nil
	}
	results, err := ix.store.Query(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 && allZero(results) {
		return lexicalSearch(ix.docs, text, k), nil
	}
	return results, nil
}

// Len reports the number of committed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Backend reports where the committed data is served from.
func (ix *Index) Backend() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.backendLocked()
}

func (ix *Index) backendLocked() string {
	if b, ok := ix.store.(interface{ Backend() string }); ok {
		return b.Backend()
	}
	return vectorstore.BackendMemory
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func allZero(results []domain.SearchResult) bool {
	for _, r := range results {
		if r.Score > 1e-9 {
			return false
		}
	}
	return true
}
