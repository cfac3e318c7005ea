// Package service composes the catalog, index, generator and planning
// components into the operations the HTTP server and CLI expose.
package service

import (
	"context"
	"fmt"
	"strings"

	"plantprofit/internal/answer"
	"plantprofit/internal/catalog"
	"plantprofit/internal/config"
	"plantprofit/internal/domain"
	"plantprofit/internal/farmmodel"
	"plantprofit/internal/index"
	"plantprofit/internal/llm"
	"plantprofit/internal/llm/extractive"
	"plantprofit/internal/optimizer"
	"plantprofit/internal/usda"
	"plantprofit/internal/weather"
)

// Deps are the components a Service is assembled from. Weather and USDA may
// be nil when those integrations are not configured.
type Deps struct {
	Catalog    *catalog.Catalog
	Index      *index.Index
	Generator  llm.Generator
	Summarizer domain.Summarizer
	Risk       config.RiskConfig
	Optimizer  optimizer.Options
	Weather    *weather.Client
	USDA       *usda.Proxy
}

type Service struct {
	catalog    *catalog.Catalog
	docs       map[string]domain.Document
	index      *index.Index
	answerer   *answer.Answerer
	summarizer domain.Summarizer
	builder    *farmmodel.Builder
	optimizer  optimizer.Options
	weather    *weather.Client
	usda       *usda.Proxy
}

func New(d Deps) *Service {
	docs := make(map[string]domain.Document)
	for _, doc := range d.Catalog.Documents() {
		docs[doc.ID] = doc
	}
	return &Service{
		catalog:    d.Catalog,
		docs:       docs,
		index:      d.Index,
		answerer:   answer.New(d.Index, d.Generator),
		summarizer: d.Summarizer,
		builder:    farmmodel.NewBuilder(d.Catalog, d.Risk),
		optimizer:  d.Optimizer,
		weather:    d.Weather,
		usda:       d.USDA,
	}
}

// Ingest embeds the whole catalog and replaces the index contents.
func (s *Service) Ingest(ctx context.Context) (index.Stats, error) {
	return s.index.UpsertAll(ctx, s.catalog.Documents())
}

// Adopt serves index data that an earlier ingest of the same catalog wrote
// to the store, without re-embedding.
func (s *Service) Adopt() (index.Stats, error) {
	return s.index.Adopt(s.catalog.Documents())
}

// Query answers a free-text question from the indexed catalog.
func (s *Service) Query(ctx context.Context, query string, topK int) (answer.Result, error) {
	return s.answerer.Answer(ctx, query, topK)
}

// Document returns a catalog document by id.
func (s *Service) Document(id string) (domain.Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

// IndexStatus reports the committed document count and serving backend.
func (s *Service) IndexStatus() index.Stats {
	return index.Stats{Count: s.index.Len(), Backend: s.index.Backend()}
}

// Overview summarizes the catalog in a few sentences.
func (s *Service) Overview(maxSentences int) (string, error) {
	docs := s.catalog.Documents()
	if len(docs) == 0 {
		return "The crop catalog is empty.", nil
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = extractive.Describe(d)
	}
	summary, err := s.summarizer.Summarize(strings.Join(parts, " "), maxSentences)
	if err != nil {
		return "", fmt.Errorf("summarize catalog: %w", err)
	}
	return summary, nil
}

// CatalogJSON returns the catalog as loaded.
func (s *Service) CatalogJSON() []byte { return s.catalog.Raw() }

// Crops returns the parsed crop records.
func (s *Service) Crops() []domain.Crop { return s.catalog.Crops() }
