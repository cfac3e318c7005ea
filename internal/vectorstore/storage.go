package vectorstore

import (
	"context"
	"math"
	"sort"

	"plantprofit/internal/domain"
)

// Storage persists document vectors and supports similarity search.
// UpsertAll replaces the entire contents; Query returns at most topK hits in
// descending score order.
type Storage interface {
	Name() string
	UpsertAll(ctx context.Context, docs []domain.Document, vectors [][]float64) error
	Query(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
}

// Publish makes a staged replacement visible.
type Publish func(ctx context.Context) error

// Stager is implemented by stores that can write a replacement without
// exposing it. Stage does the slow work; the returned Publish switches
// readers over and is expected to be short.
type Stager interface {
	Stage(ctx context.Context, docs []domain.Document, vectors [][]float64) (Publish, error)
}

// Stage prepares a replacement of s's contents. For stores that cannot
// stage, the whole UpsertAll happens at publish time.
func Stage(ctx context.Context, s Storage, docs []domain.Document, vectors [][]float64) (Publish, error) {
	if st, ok := s.(Stager); ok {
		return st.Stage(ctx, docs, vectors)
	}
	return func(ctx context.Context) error { return s.UpsertAll(ctx, docs, vectors) }, nil
}

// Epsilon keeps Cosine finite for all-zero vectors.
const Epsilon = 1e-12

// Cosine returns dot(a,b) / (|a||b| + Epsilon). Vectors of different length score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + Epsilon)
}

// TopK sorts results by descending score, keeping input order among equal
// scores, and truncates to k.
func TopK(results []domain.SearchResult, k int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results
}
