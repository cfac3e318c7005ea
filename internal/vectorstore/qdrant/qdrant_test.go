package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprofit/internal/domain"
)

type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
	aliases     map[string]string
	apiKeys     map[string]bool
	failAliases bool
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		collections: map[string][]map[string]any{},
		aliases:     map[string]string{},
		apiKeys:     map[string]bool{},
	}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys[r.Header.Get("api-key")] = true

	path := strings.TrimPrefix(r.URL.Path, "/collections/")
	name, rest, _ := strings.Cut(path, "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/aliases":
		list := []map[string]string{}
		for a, c := range f.aliases {
			list = append(list, map[string]string{"alias_name": a, "collection_name": c})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"aliases": list}})
	case r.Method == http.MethodPost && r.URL.Path == "/collections/aliases":
		if f.failAliases {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body struct {
			Actions []map[string]map[string]string `json:"actions"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, a := range body.Actions {
			if d, ok := a["delete_alias"]; ok {
				delete(f.aliases, d["alias_name"])
			}
			if c, ok := a["create_alias"]; ok {
				f.aliases[c["alias_name"]] = c["collection_name"]
			}
		}
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && rest == "":
		f.collections[name] = nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodDelete && rest == "":
		if _, ok := f.collections[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.collections, name)
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && rest == "points":
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.collections[name] = body.Points
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && rest == "points/search":
		if target, ok := f.aliases[name]; ok {
			name = target
		}
		points, ok := f.collections[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		result := make([]map[string]any, 0, len(points))
		for i, p := range points {
			result = append(result, map[string]any{"id": p["id"], "score": 1.0 - float64(i)*0.1, "payload": p["payload"]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeQdrant) snapshot() (map[string]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	aliases := make(map[string]string, len(f.aliases))
	for k, v := range f.aliases {
		aliases[k] = v
	}
	return aliases, len(f.collections)
}

var cropDocs = []domain.Document{
	{ID: "annual_corn", Text: `{"name":"Corn"}`, Metadata: domain.Metadata{Section: "annual", Key: "corn"}},
	{ID: "annual_cotton", Text: `{"name":"Cotton"}`, Metadata: domain.Metadata{Section: "annual", Key: "cotton"}},
}

func ids(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.ID
	}
	return out
}

func TestUpsertAllAndQuery(t *testing.T) {
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "crops"})
	ctx := context.Background()

	results, err := s.Query(ctx, []float64{1, 0}, 3)
	require.NoError(t, err, "missing alias reads as empty")
	assert.Empty(t, results)

	require.NoError(t, s.UpsertAll(ctx, cropDocs, [][]float64{{1, 0}, {0, 1}}))
	aliases, n := fake.snapshot()
	require.Contains(t, aliases, "crops")
	assert.Equal(t, 1, n)
	fake.mu.Lock()
	points := fake.collections[aliases["crops"]]
	fake.mu.Unlock()
	require.Len(t, points, 2)
	_, err = uuid.Parse(points[0]["id"].(string))
	assert.NoError(t, err)
	assert.Equal(t, PointID("annual_corn"), points[0]["id"])

	results, err = s.Query(ctx, []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, cropDocs[0], results[0].Document)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	require.NoError(t, s.UpsertAll(ctx, nil, nil))
	aliases, n = fake.snapshot()
	assert.Empty(t, aliases)
	assert.Equal(t, 0, n)
	results, err = s.Query(ctx, []float64{1, 0}, 2)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, map[string]bool{"secret": true}, fake.apiKeys)
}

func TestStagedReplacementIsInvisibleUntilPublished(t *testing.T) {
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	writer := NewStorage(Config{URL: srv.URL, Collection: "crops"})
	reader := NewStorage(Config{URL: srv.URL, Collection: "crops"})
	ctx := context.Background()

	require.NoError(t, writer.UpsertAll(ctx, cropDocs, [][]float64{{1, 0}, {0, 1}}))
	before, _ := fake.snapshot()

	publish, err := writer.Stage(ctx, cropDocs[:1], [][]float64{{1, 0}})
	require.NoError(t, err)
	_, n := fake.snapshot()
	assert.Equal(t, 2, n, "old and staged collections coexist")

	results, err := reader.Query(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"annual_corn", "annual_cotton"}, ids(results))

	require.NoError(t, publish(ctx))
	results, err = reader.Query(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"annual_corn"}, ids(results))

	after, n := fake.snapshot()
	assert.Equal(t, 1, n, "previous collection dropped")
	assert.NotEqual(t, before["crops"], after["crops"])
}

func TestFailedAliasSwitchKeepsPreviousSet(t *testing.T) {
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "crops"})
	ctx := context.Background()

	require.NoError(t, s.UpsertAll(ctx, cropDocs, [][]float64{{1, 0}, {0, 1}}))
	before, _ := fake.snapshot()

	fake.mu.Lock()
	fake.failAliases = true
	fake.mu.Unlock()
	err := s.UpsertAll(ctx, cropDocs[:1], [][]float64{{1, 0}})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	after, n := fake.snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, 1, n, "staged collection dropped")
	results, err := s.Query(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestPointIDIsDeterministic(t *testing.T) {
	assert.Equal(t, PointID("annual_corn"), PointID("annual_corn"))
	assert.NotEqual(t, PointID("annual_corn"), PointID("annual_cotton"))
}

func TestErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "crops"})

	_, err := s.Query(context.Background(), []float64{1}, 1)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	err = s.UpsertAll(context.Background(), []domain.Document{{ID: "a"}}, [][]float64{{1}})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
