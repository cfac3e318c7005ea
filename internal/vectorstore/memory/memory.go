package memory

import (
	"context"
	"errors"
	"sync/atomic"

	"plantprofit/internal/domain"
	"plantprofit/internal/vectorstore"
)

// Storage is an in-process vector store using brute-force cosine similarity.
// Each UpsertAll publishes a new immutable snapshot; readers never see a
// partially replaced index.
type Storage struct {
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	docs    []domain.Document
	vectors [][]float64
}

func NewStorage() *Storage {
	s := &Storage{}
	s.current.Store(&snapshot{})
	return s
}

func (s *Storage) Name() string { return "memory" }

func (s *Storage) UpsertAll(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	publish, err := s.Stage(ctx, docs, vectors)
	if err != nil {
		return err
	}
	return publish(ctx)
}

// Stage copies docs and vectors into an unpublished snapshot.
func (s *Storage) Stage(_ context.Context, docs []domain.Document, vectors [][]float64) (vectorstore.Publish, error) {
	if len(docs) != len(vectors) {
		return nil, errors.New("documents and vectors length mismatch")
	}
	next := &snapshot{
		docs:    make([]domain.Document, len(docs)),
		vectors: make([][]float64, len(vectors)),
	}
	copy(next.docs, docs)
	for i, v := range vectors {
		next.vectors[i] = append([]float64(nil), v...)
	}
	return func(context.Context) error {
		s.current.Store(next)
		return nil
	}, nil
}

// Query scores every stored vector whose dimension matches the query.
func (s *Storage) Query(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	snap := s.current.Load()
	results := make([]domain.SearchResult, 0, len(snap.vectors))
	for i, v := range snap.vectors {
		if len(v) != len(vector) {
			continue
		}
		results = append(results, domain.SearchResult{Document: snap.docs[i], Score: vectorstore.Cosine(v, vector)})
	}
	return vectorstore.TopK(results, topK), nil
}

// Documents returns the committed documents in insertion order.
func (s *Storage) Documents() []domain.Document {
	return s.current.Load().docs
}

// Len reports the number of committed documents.
func (s *Storage) Len() int { return len(s.current.Load().docs) }
