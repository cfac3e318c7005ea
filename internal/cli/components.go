package cli

import (
	"context"
	"fmt"
	"os"

	"plantprofit/internal/catalog"
	"plantprofit/internal/config"
	"plantprofit/internal/embedding"
	embopenai "plantprofit/internal/embedding/openai"
	"plantprofit/internal/embedding/tfidf"
	"plantprofit/internal/index"
	"plantprofit/internal/llm"
	"plantprofit/internal/llm/extractive"
	llmopenai "plantprofit/internal/llm/openai"
	"plantprofit/internal/logging"
	"plantprofit/internal/metrics"
	"plantprofit/internal/optimizer"
	"plantprofit/internal/service"
	"plantprofit/internal/summarizer"
	"plantprofit/internal/upstream"
	"plantprofit/internal/usda"
	"plantprofit/internal/vectorstore"
	"plantprofit/internal/vectorstore/memory"
	"plantprofit/internal/vectorstore/pgvector"
	"plantprofit/internal/vectorstore/qdrant"
	"plantprofit/internal/weather"
)

// runtime is the assembled application.
type runtime struct {
	svc      *service.Service
	fallback *vectorstore.Fallback
	closers  []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// build assembles the service from cfg. Remote backends that cannot be
// configured are replaced by stand-ins that report unavailability, so the
// non-AI features keep working.
func build(ctx context.Context, cfg *config.AppConfig, m *metrics.Metrics) (*runtime, error) {
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(cfg.Embedder, m)
	if err != nil {
		return nil, err
	}
	sum := summarizer.NewFrequencySummarizer()
	gen, err := newGenerator(cfg.Generator, sum, m)
	if err != nil {
		return nil, err
	}

	rt := &runtime{}
	store, err := rt.newStore(ctx, cfg.VectorStore, m)
	if err != nil {
		return nil, err
	}

	deps := service.Deps{
		Catalog:    cat,
		Index:      index.New(emb, store, m),
		Generator:  gen,
		Summarizer: sum,
		Risk:       cfg.Risk,
		Optimizer:  optimizer.Options{Integer: cfg.Optimizer.Integer, MaxNodes: cfg.Optimizer.MaxNodes},
	}
	if cfg.Weather.BaseURL != "" {
		deps.Weather = weather.NewClient(cfg.Weather, upstream.New("open-meteo", upstream.Options{
			Timeout: config.Seconds(cfg.Weather.TimeoutSecs),
			Metrics: m,
		}))
	}
	if cfg.USDA.BaseURL != "" {
		deps.USDA = usda.NewProxy(cfg.USDA.BaseURL, envOrEmpty(cfg.USDA.APIKeyEnv), upstream.New("usda", upstream.Options{
			Timeout:           config.Seconds(cfg.USDA.TimeoutSecs),
			RequestsPerSecond: cfg.USDA.RequestsPerSecond,
			Metrics:           m,
		}))
	}
	rt.svc = service.New(deps)
	logging.Infof("setup", "catalog=%d crops embedder=%s generator=%s store=%s",
		cat.Len(), emb.Name(), gen.Name(), store.Name())
	return rt, nil
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.Path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Path, err)
	}
	return cat, nil
}

func newEmbedder(cfg config.EmbedderConfig, m *metrics.Metrics) (embedding.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		oc := cfg.OpenAI
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:           oc.BaseURL,
			APIKeyEnv:         oc.APIKeyEnv,
			Model:             oc.Model,
			Timeout:           oc.Timeout(),
			RequestsPerSecond: oc.RequestsPerSecond,
			Metrics:           m,
		})
		if err != nil {
			logging.Warnf("setup", "openai embedder disabled: %v", err)
			return embedding.Unavailable{Backend: "openai", Reason: err.Error()}, nil
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newGenerator(cfg config.GeneratorConfig, sum *summarizer.FrequencySummarizer, m *metrics.Metrics) (llm.Generator, error) {
	switch cfg.Type {
	case "extractive", "":
		return extractive.New(sum, cfg.MaxSentences), nil
	case "openai":
		oc := cfg.OpenAI
		client, err := llmopenai.NewClient(llmopenai.Config{
			BaseURL:           oc.BaseURL,
			APIKeyEnv:         oc.APIKeyEnv,
			Model:             oc.Model,
			Timeout:           oc.Timeout(),
			RequestsPerSecond: oc.RequestsPerSecond,
			Metrics:           m,
		})
		if err != nil {
			logging.Warnf("setup", "openai generator disabled: %v", err)
			return llm.Unavailable{Backend: "openai", Reason: err.Error()}, nil
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}

// newStore returns the configured store. External stores are fronted by a
// memory mirror; a pgvector database that cannot be reached at startup
// leaves the process on the memory store alone.
func (r *runtime) newStore(ctx context.Context, cfg config.VectorStoreConfig, m *metrics.Metrics) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		q := cfg.Qdrant
		ext := qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     envOrEmpty(q.APIKeyEnv),
			Collection: q.Collection,
			Timeout:    config.Seconds(q.TimeoutSecs),
			Metrics:    m,
		})
		r.fallback = vectorstore.NewFallback(ext, memory.NewStorage(), m)
		return r.fallback, nil
	case "pgvector":
		p := cfg.PGVector
		cctx, cancel := context.WithTimeout(ctx, config.Seconds(p.TimeoutSecs))
		defer cancel()
		pg, err := pgvector.New(cctx, pgvector.Config{DSN: envOrEmpty(p.DSNEnv), Table: p.Table})
		if err != nil {
			logging.Warnf("setup", "pgvector unavailable, using memory store: %v", err)
			return memory.NewStorage(), nil
		}
		r.closers = append(r.closers, pg.Close)
		r.fallback = vectorstore.NewFallback(pg, memory.NewStorage(), m)
		return r.fallback, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// prepare makes the index servable: it ingests the catalog unless an
// external store is configured and ingestOnStart is off, in which case the
// data written by an earlier `plantprofit ingest` is adopted.
func (r *runtime) prepare(ctx context.Context, ingestOnStart bool, timeoutSecs int) error {
	if r.fallback != nil && !ingestOnStart {
		r.fallback.AdoptExternal()
		stats, err := r.svc.Adopt()
		if err != nil {
			return err
		}
		logging.Infof("setup", "serving %d previously ingested documents from %s", stats.Count, r.fallback.Name())
		return nil
	}
	ictx, cancel := context.WithTimeout(ctx, config.Seconds(timeoutSecs))
	defer cancel()
	stats, err := r.svc.Ingest(ictx)
	if err != nil {
		return err
	}
	logging.Infof("setup", "ingested %d documents into %s", stats.Count, stats.Backend)
	return nil
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
