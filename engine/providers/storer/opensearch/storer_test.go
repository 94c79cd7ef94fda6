package opensearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/upserter/engine/providers/storer"
)

type fakeOpenSearch struct {
	mtx        sync.Mutex
	mapping    map[string]any
	docs       map[string]map[string]any
	lastSearch map[string]any
	refresh    []string
	auth       string
}

func (f *fakeOpenSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.auth = r.Header.Get("Authorization")

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodHead && len(parts) == 1:
		if f.mapping == nil {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && len(parts) == 1:
		json.NewDecoder(r.Body).Decode(&f.mapping)
		w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut && len(parts) == 3 && parts[1] == "_doc":
		var doc map[string]any
		json.NewDecoder(r.Body).Decode(&doc)
		f.docs[parts[2]] = doc
		f.refresh = append(f.refresh, r.URL.Query().Get("refresh"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodPost && len(parts) == 3 && parts[1] == "_update":
		doc, ok := f.docs[parts[2]]
		if !ok {
			http.Error(w, `{"error":{"type":"document_missing_exception"},"status":404}`, http.StatusNotFound)
			return
		}
		var req struct {
			Doc map[string]any `json:"doc"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for k, v := range req.Doc {
			doc[k] = v
		}
		f.refresh = append(f.refresh, r.URL.Query().Get("refresh"))
		w.Write([]byte(`{"result":"updated"}`))
	case r.Method == http.MethodGet && len(parts) == 3 && parts[1] == "_doc":
		doc, ok := f.docs[parts[2]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"_id": parts[2], "found": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"_id": parts[2], "found": true, "_source": doc})
	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "_search":
		json.NewDecoder(r.Body).Decode(&f.lastSearch)
		hits := []map[string]any{}
		for id, doc := range f.docs {
			hits = append(hits, map[string]any{"_id": id, "_score": 0.75, "_source": doc})
		}
		json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusTeapot)
	}
}

func newTestStorer(t *testing.T, opts ...storer.Option) (storer.Storer, *fakeOpenSearch) {
	t.Helper()
	fake := &fakeOpenSearch{docs: map[string]map[string]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opts = append([]storer.Option{
		storer.WithLocation(srv.URL),
		storer.WithCollection("langflow-projects"),
		storer.WithVectorSize(3),
	}, opts...)

	return NewStorer(opts...), fake
}

func TestNewStorerCreatesKnnIndex(t *testing.T) {
	_, fake := newTestStorer(t)

	require.NotNil(t, fake.mapping)
	props := fake.mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	vector := props["embedding"].(map[string]any)
	assert.Equal(t, "knn_vector", vector["type"])
	assert.EqualValues(t, 3, vector["dimension"])
	assert.Equal(t, "keyword", props["tags"].(map[string]any)["type"])
}

func TestNewStorerPanicsWithoutIndex(t *testing.T) {
	assert.Panics(t, func() {
		NewStorer(storer.WithLocation("http://localhost:9200"))
	})
}

func TestIndexAndGet(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorer(t)

	created := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

	require.NoError(t, s.Index(ctx, "doc-1", storer.Record{
		SessionId: "s1",
		Tags:      []string{"groceries"},
		Content:   "Buy milk",
		Embedding: []float32{0.1, 0.2, 0.3},
		CreatedAt: created,
		UpdatedAt: created,
	}))

	assert.Equal(t, []string{"true"}, fake.refresh)
	assert.Equal(t, "doc-1", fake.docs["doc-1"]["id"])
	assert.Equal(t, "s1", fake.docs["doc-1"]["session"])

	rec, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", rec.Id)
	assert.Equal(t, "Buy milk", rec.Content)
	assert.Equal(t, []string{"groceries"}, rec.Tags)
	assert.Equal(t, "s1", rec.SessionId)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, rec.Embedding, 1e-6)
	assert.True(t, created.Equal(rec.CreatedAt))
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStorer(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storer.ErrNotFound)
}

func TestUpdateFields(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorer(t, WithRefresh("wait_for"))

	created := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	require.NoError(t, s.Index(ctx, "doc-1", storer.Record{
		Tags:      []string{"groceries"},
		Content:   "Buy milk",
		Embedding: []float32{1, 0, 0},
		CreatedAt: created,
		UpdatedAt: created,
	}))

	later := created.Add(time.Minute)
	require.NoError(t, s.UpdateFields(ctx, "doc-1", storer.Fields{
		Content:   "Buy milk\n\nBuy eggs too",
		Embedding: []float32{0, 1, 0},
		UpdatedAt: later,
	}))

	assert.Equal(t, []string{"wait_for", "wait_for"}, fake.refresh)

	rec, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk\n\nBuy eggs too", rec.Content)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, rec.Embedding, 1e-6)
	assert.True(t, later.Equal(rec.UpdatedAt))
	assert.True(t, created.Equal(rec.CreatedAt))
	assert.Equal(t, []string{"groceries"}, rec.Tags)

	err = s.UpdateFields(ctx, "missing", storer.Fields{Content: "x"})
	assert.ErrorIs(t, err, storer.ErrNotFound)
}

func TestSearchBuildsHybridQuery(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorer(t, WithVectorField("vec"))

	require.NoError(t, s.Index(ctx, "doc-1", storer.Record{Tags: []string{"work", "home"}, Content: "x", Embedding: []float32{1, 0, 0}}))

	hits, err := s.Search(ctx, storer.Query{Tags: []string{"work", "home"}, Vector: []float32{1, 0, 0}, K: 3, Limit: 3})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1", hits[0].Id)
	assert.InDelta(t, 0.75, hits[0].Score, 1e-6)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, hits[0].Embedding, 1e-6)

	assert.EqualValues(t, 3, fake.lastSearch["size"])
	boolQuery := fake.lastSearch["query"].(map[string]any)["bool"].(map[string]any)

	filter := boolQuery["filter"].([]any)
	require.Len(t, filter, 2)
	assert.Equal(t, "work", filter[0].(map[string]any)["term"].(map[string]any)["tags"])
	assert.Equal(t, "home", filter[1].(map[string]any)["term"].(map[string]any)["tags"])

	must := boolQuery["must"].([]any)
	require.Len(t, must, 1)
	knn := must[0].(map[string]any)["knn"].(map[string]any)["vec"].(map[string]any)
	assert.EqualValues(t, 3, knn["k"])
}

func TestSearchWithoutTagsSkipsRequest(t *testing.T) {
	s, fake := newTestStorer(t)

	hits, err := s.Search(context.Background(), storer.Query{Vector: []float32{1, 0, 0}, K: 3, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Nil(t, fake.lastSearch)
}

func TestBasicAuth(t *testing.T) {
	s, fake := newTestStorer(t, WithBasicAuth("admin", "admin"))

	_, _ = s.Get(context.Background(), "x")
	assert.True(t, strings.HasPrefix(fake.auth, "Basic "))
}

func TestTimestampDecoding(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 500000000, time.UTC)

	assert.True(t, ts.Equal(timestamp(map[string]any{"created": epochSeconds(ts)}, "created")))
	assert.True(t, ts.Equal(timestamp(map[string]any{"created": ts.Format(time.RFC3339Nano)}, "created")))
	assert.True(t, timestamp(map[string]any{}, "created").IsZero())
}
