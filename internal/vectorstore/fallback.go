package vectorstore

import (
	"context"
	"sync/atomic"

	"plantprofit/internal/domain"
	"plantprofit/internal/logging"
	"plantprofit/internal/metrics"
)

const (
	BackendMemory   = "memory"
	BackendExternal = "external"
)

// Fallback fronts an external store with an in-process mirror. Every upsert
// lands in the mirror; external failures are logged, counted and answered
// from the mirror instead of surfacing to the caller.
type Fallback struct {
	external Storage
	mirror   Storage
	metrics  *metrics.Metrics

	// externalCurrent is true when the external store holds the last committed upsert.
	externalCurrent atomic.Bool
}

// NewFallback wraps external; mirror is typically a memory.Storage.
func NewFallback(external, mirror Storage, m *metrics.Metrics) *Fallback {
	return &Fallback{external: external, mirror: mirror, metrics: m}
}

// AdoptExternal marks the external store as current without an upsert, for
// processes serving data another process ingested.
func (f *Fallback) AdoptExternal() { f.externalCurrent.Store(true) }

func (f *Fallback) Name() string { return f.external.Name() }

// Backend reports which side holds the current data: BackendExternal or BackendMemory.
func (f *Fallback) Backend() string {
	if f.externalCurrent.Load() {
		return BackendExternal
	}
	return BackendMemory
}

func (f *Fallback) UpsertAll(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	publish, err := f.Stage(ctx, docs, vectors)
	if err != nil {
		return err
	}
	return publish(ctx)
}

// Stage stages both sides. Only a mirror failure is returned; an external
// failure at either step demotes serving to the mirror.
func (f *Fallback) Stage(ctx context.Context, docs []domain.Document, vectors [][]float64) (Publish, error) {
	publishMirror, err := Stage(ctx, f.mirror, docs, vectors)
	if err != nil {
		return nil, err
	}
	publishExternal, err := Stage(ctx, f.external, docs, vectors)
	if err != nil {
		f.externalFailed(len(docs), err)
		publishExternal = nil
	}
	return func(ctx context.Context) error {
		if err := publishMirror(ctx); err != nil {
			return err
		}
		if publishExternal == nil {
			f.externalCurrent.Store(false)
			return nil
		}
		if err := publishExternal(ctx); err != nil {
			f.externalFailed(len(docs), err)
			f.externalCurrent.Store(false)
			return nil
		}
		f.externalCurrent.Store(true)
		return nil
	}, nil
}

func (f *Fallback) externalFailed(n int, err error) {
	f.metrics.IncFallback(f.external.Name(), "upsert")
	logging.Warnf("vectorstore", "%s upsert failed, serving %d documents from memory: %v", f.external.Name(), n, err)
}

func (f *Fallback) Query(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if !f.externalCurrent.Load() {
		return f.mirror.Query(ctx, vector, topK)
	}
	results, err := f.external.Query(ctx, vector, topK)
	if err == nil {
		return results, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f.metrics.IncFallback(f.external.Name(), "query")
	logging.Warnf("vectorstore", "%s query failed, falling back to memory: %v", f.external.Name(), err)
	return f.mirror.Query(ctx, vector, topK)
}
