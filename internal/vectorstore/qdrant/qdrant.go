package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"plantprofit/internal/domain"
	"plantprofit/internal/logging"
	"plantprofit/internal/metrics"
	"plantprofit/internal/upstream"
	"plantprofit/internal/vectorstore"
)

// pointNamespace derives stable point ids: Qdrant only accepts unsigned
// integers or UUIDs, so document ids are mapped through UUIDv5.
var pointNamespace = uuid.MustParse("6f1c2a64-4f0e-5d8b-9a43-0d3a1b7e2c55")

// Storage is a minimal REST client to Qdrant with cosine distance. Readers
// go through an alias named after the configured collection; every
// replacement is written to a fresh collection and the alias is switched in
// one request, so other processes never see a half-written set.
type Storage struct {
	url    string
	apiKey string
	alias  string
	http   *upstream.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	Metrics    *metrics.Metrics
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		alias:  cfg.Collection,
		http:   upstream.New("qdrant", upstream.Options{Timeout: timeout, Metrics: cfg.Metrics}),
	}
}

func (s *Storage) Name() string { return "qdrant" }

// PointID returns the Qdrant point id used for a document id.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

func (s *Storage) UpsertAll(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	publish, err := s.Stage(ctx, docs, vectors)
	if err != nil {
		return err
	}
	return publish(ctx)
}

// Stage uploads docs into a new collection. The returned Publish points the
// alias at it and drops the collection the alias used to name. An empty
// replacement publishes by removing the alias.
func (s *Storage) Stage(ctx context.Context, docs []domain.Document, vectors [][]float64) (vectorstore.Publish, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("documents and vectors length mismatch")
	}
	if len(docs) == 0 {
		return func(ctx context.Context) error { return s.switchAlias(ctx, "") }, nil
	}

	dimension := len(vectors[0])
	points := make([]map[string]any, len(docs))
	for i := range docs {
		if len(vectors[i]) != dimension {
			return nil, fmt.Errorf("vector dimension mismatch for %s: got %d, want %d", docs[i].ID, len(vectors[i]), dimension)
		}
		points[i] = map[string]any{
			"id":     PointID(docs[i].ID),
			"vector": vectors[i],
			"payload": map[string]any{
				"doc_id":   docs[i].ID,
				"section":  docs[i].Metadata.Section,
				"key":      docs[i].Metadata.Key,
				"text":     docs[i].Text,
				"position": i,
			},
		}
	}

	name := s.alias + "_" + uuid.NewString()
	body := map[string]any{"vectors": map[string]any{"size": dimension, "distance": "Cosine"}}
	if err := s.send(ctx, http.MethodPut, s.collectionURL(name, ""), body, nil); err != nil {
		return nil, err
	}
	if err := s.send(ctx, http.MethodPut, s.collectionURL(name, "/points?wait=true"), map[string]any{"points": points}, nil); err != nil {
		s.dropCollection(ctx, name)
		return nil, err
	}
	return func(ctx context.Context) error {
		if err := s.switchAlias(ctx, name); err != nil {
			s.dropCollection(ctx, name)
			return err
		}
		return nil
	}, nil
}

func (s *Storage) Query(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				DocID   string `json:"doc_id"`
				Section string `json:"section"`
				Key     string `json:"key"`
				Text    string `json:"text"`
			} `json:"payload"`
		} `json:"result"`
	}
	err := s.send(ctx, http.MethodPost, s.collectionURL(s.alias, "/points/search"), req, &resp)
	if upstream.IsStatus(err, http.StatusNotFound) {
		// no alias: nothing has been ingested yet
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Document: domain.Document{
				ID:       r.Payload.DocID,
				Text:     r.Payload.Text,
				Metadata: domain.Metadata{Section: r.Payload.Section, Key: r.Payload.Key},
			},
			Score: r.Score,
		})
	}
	return results, nil
}

// switchAlias points the alias at target, or removes it when target is
// empty, then drops the collection it previously named.
func (s *Storage) switchAlias(ctx context.Context, target string) error {
	previous, err := s.aliasTarget(ctx)
	if err != nil {
		return err
	}
	var actions []map[string]any
	if previous != "" {
		actions = append(actions, map[string]any{"delete_alias": map[string]any{"alias_name": s.alias}})
	}
	if target != "" {
		actions = append(actions, map[string]any{"create_alias": map[string]any{"collection_name": target, "alias_name": s.alias}})
	}
	if len(actions) > 0 {
		if err := s.send(ctx, http.MethodPost, s.url+"/collections/aliases", map[string]any{"actions": actions}, nil); err != nil {
			return err
		}
	}
	if previous != "" && previous != target {
		s.dropCollection(ctx, previous)
	}
	return nil
}

// aliasTarget returns the collection the alias names, or "" when it is unset.
func (s *Storage) aliasTarget(ctx context.Context) (string, error) {
	var resp struct {
		Result struct {
			Aliases []struct {
				AliasName      string `json:"alias_name"`
				CollectionName string `json:"collection_name"`
			} `json:"aliases"`
		} `json:"result"`
	}
	if err := s.send(ctx, http.MethodGet, s.url+"/aliases", nil, &resp); err != nil {
		return "", err
	}
	for _, a := range resp.Result.Aliases {
		if a.AliasName == s.alias {
			return a.CollectionName, nil
		}
	}
	return "", nil
}

// dropCollection removes an unreferenced collection. Failures only leak storage.
func (s *Storage) dropCollection(ctx context.Context, name string) {
	err := s.send(ctx, http.MethodDelete, s.collectionURL(name, ""), nil, nil)
	if err != nil && !upstream.IsStatus(err, http.StatusNotFound) {
		logging.Warnf("qdrant", "drop collection %s: %v", name, err)
	}
}

func (s *Storage) collectionURL(name, suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, name, suffix)
}

func (s *Storage) send(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.http.Do(ctx, req, nil)
	if err != nil {
		return err
	}
	if err := s.http.Check(resp); err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("decode qdrant response: %v: %w", err, domain.ErrServiceUnavailable)
		}
	}
	return nil
}
