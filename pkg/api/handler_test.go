package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
	"github.com/hazyhaar/voxsearch/pkg/voice"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	reg := dataset.NewRegistry("", nil)
	require.NoError(t, reg.Load(context.Background()))
	return Deps{
		Registry: reg,
		Sessions: voice.NewManager(reg, voice.ContextGate, nil),
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSearch(t *testing.T) {
	h := NewRouter(testDeps(t))

	rec := do(t, h, "GET", "/v1/search?q=ten+mm+glass", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	res := decode[dataset.SearchResult](t, rec)
	assert.Equal(t, dataset.BuiltinID, res.Dataset)
	assert.Equal(t, "10 mm glass", res.Normalized)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "10 mm tempered glass", res.Records[0].Text)
}

func TestSearch_EmptyQueryReturnsAll(t *testing.T) {
	h := NewRouter(testDeps(t))

	res := decode[dataset.SearchResult](t, do(t, h, "GET", "/v1/search", ""))
	assert.Len(t, res.Records, res.Total)
}

func TestSearch_UnknownDataset(t *testing.T) {
	h := NewRouter(testDeps(t))

	rec := do(t, h, "GET", "/v1/search?q=glass&dataset=nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "dataset not found")
}

func TestNormalize(t *testing.T) {
	h := NewRouter(testDeps(t))

	rec := do(t, h, "GET", "/v1/normalize?text=Ten++MM,+Glass!", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[normalizeResponse](t, rec)
	assert.Equal(t, "10 mm glass", resp.Normalized)
	assert.Equal(t, []string{"10", "mm", "glass"}, resp.Words)

	resp = decode[normalizeResponse](t, do(t, h, "GET", "/v1/normalize?text=!!!", ""))
	assert.Equal(t, "", resp.Normalized)
	assert.Equal(t, []string{}, resp.Words)
}

func TestMatch(t *testing.T) {
	h := NewRouter(testDeps(t))

	rec := do(t, h, "POST", "/v1/match", `{"candidate":"1.2mm RR Electrical Case","query":"2mm elec"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[matchResponse](t, rec)
	assert.True(t, resp.Matches)
	assert.Equal(t, "1.2mm rr electrical case", resp.Candidate)

	resp = decode[matchResponse](t, do(t, h, "POST", "/v1/match", `{"candidate":"MuuchStac Growth Pure","query":"glass"}`))
	assert.False(t, resp.Matches)
}

func TestMatch_BadRequests(t *testing.T) {
	h := NewRouter(testDeps(t))

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/v1/match", `{"candidate":"","query":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/v1/match", `not json`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, "GET", "/v1/match", "").Code)
}

func TestListDatasetsAndHealth(t *testing.T) {
	h := NewRouter(testDeps(t))

	resp := decode[datasetsResponse](t, do(t, h, "GET", "/v1/datasets", ""))
	require.Len(t, resp.Datasets, 1)
	assert.Equal(t, dataset.BuiltinID, resp.Datasets[0].ID)

	health := decode[healthResponse](t, do(t, h, "GET", "/v1/health", ""))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Datasets)
	assert.Equal(t, resp.Datasets[0].Records, health.TotalRecords)
	assert.Equal(t, 0, health.Sessions)
}

func TestCORSPreflight(t *testing.T) {
	h := NewRouter(testDeps(t))

	rec := do(t, h, "OPTIONS", "/v1/sessions", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type sessionJSON struct {
	ID      string           `json:"id"`
	Query   string           `json:"query"`
	Results []dataset.Record `json:"results"`
	Status  string           `json:"status"`
	State   string           `json:"state"`
}

func TestSessionLifecycle(t *testing.T) {
	h := NewRouter(testDeps(t))

	rec := do(t, h, "POST", "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	s := decode[sessionJSON](t, rec)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "idle", s.State)
	base := "/v1/sessions/" + s.ID

	// Typed input.
	s = decode[sessionJSON](t, do(t, h, "PUT", base+"/query", `{"query":"cement"}`))
	assert.Equal(t, "cement", s.Query)
	require.Len(t, s.Results, 1)

	// Permission refused: nothing changes.
	rec = do(t, h, "POST", base+"/toggle", `{"authorized":false}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	s = decode[sessionJSON](t, do(t, h, "GET", base, ""))
	assert.Equal(t, "idle", s.State)
	assert.Equal(t, "cement", s.Query)

	// Voice pass driven by posted events.
	s = decode[sessionJSON](t, do(t, h, "POST", base+"/toggle", `{"authorized":true}`))
	assert.Equal(t, "listening", s.State)
	assert.Equal(t, voice.StatusListening, s.Status)

	ev := decode[eventResponse](t, do(t, h, "POST", base+"/events", `{"type":"ended"}`))
	assert.True(t, ev.Applied)
	assert.Equal(t, voice.Processing, ev.Session.State)

	ev = decode[eventResponse](t, do(t, h, "POST", base+"/events", `{"type":"result","text":"Glass Tempered"}`))
	assert.True(t, ev.Applied)
	assert.Equal(t, voice.Idle, ev.Session.State)
	assert.Equal(t, "Glass Tempered", ev.Session.Query)
	require.Len(t, ev.Session.Results, 1)
	assert.Equal(t, "10 mm tempered glass", ev.Session.Results[0].Text)

	// Idle: further events are dropped.
	ev = decode[eventResponse](t, do(t, h, "POST", base+"/events", `{"type":"result","text":"steel"}`))
	assert.False(t, ev.Applied)

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", base, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", base, "").Code)
}

func TestSession_RecognitionError(t *testing.T) {
	h := NewRouter(testDeps(t))
	s := decode[sessionJSON](t, do(t, h, "POST", "/v1/sessions", `{"dataset":"materials"}`))
	base := "/v1/sessions/" + s.ID

	do(t, h, "PUT", base+"/query", `{"query":"glass"}`)
	do(t, h, "POST", base+"/toggle", `{"authorized":true}`)
	ev := decode[eventResponse](t, do(t, h, "POST", base+"/events", `{"type":"error","reason":"network"}`))

	assert.Equal(t, voice.StatusError, ev.Session.Status)
	assert.Equal(t, "glass", ev.Session.Query)
	assert.Len(t, ev.Session.Results, 2)
}

func TestSession_Errors(t *testing.T) {
	h := NewRouter(testDeps(t))

	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/v1/sessions", `{"dataset":"nope"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "PUT", "/v1/sessions/missing/query", `{"query":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/v1/sessions/missing", "").Code)

	s := decode[sessionJSON](t, do(t, h, "POST", "/v1/sessions", ""))
	rec := do(t, h, "POST", "/v1/sessions/"+s.ID+"/events", `{"type":"volume"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMCPTools(t *testing.T) {
	srv := server.NewMCPServer("voxsearch", "test", server.WithToolCapabilities(false))
	RegisterMCPTools(srv, testDeps(t))

	call := func(name string, args map[string]any) map[string]any {
		msg, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "tools/call",
			"params":  map[string]any{"name": name, "arguments": args},
		})
		data, err := json.Marshal(srv.HandleMessage(context.Background(), msg))
		require.NoError(t, err)
		var out struct {
			Result map[string]any `json:"result"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		return out.Result
	}
	text := func(result map[string]any) string {
		return result["content"].([]any)[0].(map[string]any)["text"].(string)
	}

	var res dataset.SearchResult
	require.NoError(t, json.Unmarshal([]byte(text(call("search_records", map[string]any{"query": "DM0000011"}))), &res))
	require.Len(t, res.Records, 1)
	assert.Equal(t, "DM0000011", res.Records[0].Text)

	assert.Contains(t, text(call("normalize_text", map[string]any{"text": "Twenty A"})), `"normalized":"20 a"`)
	assert.Contains(t, text(call("match_text", map[string]any{"candidate": "Cement OPC 53 Grade", "query": "opc cement"})), `"matches":true`)
	assert.Contains(t, text(call("list_datasets", nil)), `"id":"materials"`)

	bad := call("search_records", map[string]any{"query": "x", "dataset": "nope"})
	assert.Equal(t, true, bad["isError"])
}
