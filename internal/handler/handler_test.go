package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/upserter"
	"github.com/w-h-a/upserter/engine"
	"github.com/w-h-a/upserter/engine/providers/embedder/hashing"
	"github.com/w-h-a/upserter/engine/providers/storer"
	"github.com/w-h-a/upserter/engine/providers/storer/memory"
	"github.com/w-h-a/upserter/server"
	httpserver "github.com/w-h-a/upserter/server/http"
	"github.com/w-h-a/upserter/tool_handler/resolve"
)

func startServer(t *testing.T, u Upserter, tools bool) string {
	t.Helper()

	srv := httpserver.NewServer(server.WithAddress("127.0.0.1:0"))

	metrics := NewMetrics()

	if tools {
		facade, ok := u.(*upserter.Upserter)
		require.True(t, ok)
		Register(srv, u, metrics, resolve.NewToolHandler(resolve.WithEngine(facade.Engine())))
	} else {
		Register(srv, u, metrics)
	}

	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	return "http://" + srv.Options().Address
}

func postJSON(t *testing.T, url string, body string) (int, map[string]any) {
	t.Helper()

	rsp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer rsp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&out))

	return rsp.StatusCode, out
}

func TestResolveThenUpdateThenRecord(t *testing.T) {
	base := startServer(t, upserter.New(memory.NewStorer(), hashing.NewEmbedder()), false)

	status, first := postJSON(t, base+"/api/v1/resolve", `{"query":"Buy milk","tags":"groceries","session_id":"s1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "insert", first["action"])

	status, second := postJSON(t, base+"/api/v1/resolve", `{"query":"Buy eggs","tags":["groceries"]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "update", second["action"])
	assert.Equal(t, first["record_id"], second["record_id"])

	rsp, err := http.Get(base + "/api/v1/records/" + first["record_id"].(string))
	require.NoError(t, err)
	defer rsp.Body.Close()
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	var rec map[string]any
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&rec))
	assert.Equal(t, "Buy milk\n\nBuy eggs", rec["content"])
	assert.Equal(t, "s1", rec["session_id"])
	assert.NotContains(t, rec, "embedding")

	rsp2, err := http.Get(base + "/api/v1/records/" + first["record_id"].(string) + "?embedding=true")
	require.NoError(t, err)
	defer rsp2.Body.Close()

	var withEmbedding map[string]any
	require.NoError(t, json.NewDecoder(rsp2.Body).Decode(&withEmbedding))
	assert.NotEmpty(t, withEmbedding["embedding"])

	metrics, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	b, _ := io.ReadAll(metrics.Body)
	assert.Contains(t, string(b), `upserter_resolve_total{action="insert"} 1`)
	assert.Contains(t, string(b), `upserter_resolve_total{action="update"} 1`)
}

func TestResolveAcceptsEmptyTags(t *testing.T) {
	base := startServer(t, upserter.New(memory.NewStorer(), hashing.NewEmbedder()), false)

	for _, body := range []string{`{"query":"x","tags":""}`, `{"query":"x","tags":[]}`} {
		status, out := postJSON(t, base+"/api/v1/resolve", body)
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "insert", out["action"])
	}
}

func TestRecordNotFound(t *testing.T) {
	base := startServer(t, upserter.New(memory.NewStorer(), hashing.NewEmbedder()), false)

	rsp, err := http.Get(base + "/api/v1/records/missing")
	require.NoError(t, err)
	rsp.Body.Close()

	assert.Equal(t, http.StatusNotFound, rsp.StatusCode)
}

func TestResolveRejectsBadInput(t *testing.T) {
	base := startServer(t, upserter.New(memory.NewStorer(), hashing.NewEmbedder()), false)

	for _, body := range []string{`not json`, `{"tags":"a"}`, `{"query":"  "}`, `{"query":"x","tags":5}`, `{"query":"x"}`, `{"query":"x","tags":null}`} {
		status, out := postJSON(t, base+"/api/v1/resolve", body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.NotEmpty(t, out["error"])
	}
}

type failingUpserter struct {
	err error
}

func (f *failingUpserter) Resolve(ctx context.Context, query string, tags []string, sessionId string) (engine.Outcome, error) {
	return engine.Outcome{}, f.err
}

func (f *failingUpserter) Record(ctx context.Context, id string) (storer.Record, error) {
	return storer.Record{}, f.err
}

func TestResolveMapsErrorKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{engine.NewError(engine.KindEmbedding, engine.StageEmbed, errors.New("x")), http.StatusBadGateway, "embedding failure"},
		{engine.NewError(engine.KindStore, engine.StageSearch, errors.New("x")), http.StatusBadGateway, "store failure"},
		{engine.NewError(engine.KindNotFound, engine.StageUpdate, storer.ErrNotFound), http.StatusConflict, "not found"},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, c := range cases {
		metrics := NewMetrics()
		h := NewResolve(&failingUpserter{err: c.err}, metrics)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/resolve", bytes.NewBufferString(`{"query":"x","tags":"a"}`)))

		assert.Equal(t, c.status, w.Code)

		var out errorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
		assert.Equal(t, c.kind, out.Kind)
	}
}

func TestRecordStoreFailure(t *testing.T) {
	h := NewRecords(&failingUpserter{err: errors.New("down")})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/records/", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/v1/records/x", nil), map[string]string{"id": "x"})
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestToolsManualAndCall(t *testing.T) {
	base := startServer(t, upserter.New(memory.NewStorer(), hashing.NewEmbedder()), true)

	status, manual := postJSON(t, base+"/api/v1/tools", ``)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1.0", manual["version"])

	tools, ok := manual["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, resolve.Name, tools[0].(map[string]any)["name"])

	status, out := postJSON(t, base+"/api/v1/tools", `{"query":"Buy milk","tags":"groceries"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out["result"], "No matches found. Created record")

	status, out = postJSON(t, base+"/api/v1/tools", `{"query":"Buy eggs","tags":"groceries"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out["result"], "Found and updated record")

	status, _ = postJSON(t, base+"/api/v1/tools", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = postJSON(t, base+"/api/v1/tools", `{"query":"x","tags":7}`)
	assert.Equal(t, http.StatusBadRequest, status)
}
