package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/hazyhaar/voxsearch/pkg/kit"
)

const maxBodyBytes = 64 * 1024

// NewRouter returns an http.Handler with all voxsearch API routes.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	h := &handler{ep: newEndpoints(d), deps: d}

	mux.HandleFunc("GET /v1/search", h.handleSearch)
	mux.HandleFunc("GET /v1/normalize", h.handleNormalize)
	mux.HandleFunc("GET /v1/match", methodNotAllowed) // candidate and query go in the body
	mux.HandleFunc("POST /v1/match", h.handleMatch)
	mux.HandleFunc("GET /v1/datasets", h.handleListDatasets)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	mux.HandleFunc("POST /v1/sessions", h.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", h.handleGetSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.handleDeleteSession)
	mux.HandleFunc("PUT /v1/sessions/{id}/query", h.handleSetQuery)
	mux.HandleFunc("POST /v1/sessions/{id}/toggle", h.handleToggle)
	mux.HandleFunc("POST /v1/sessions/{id}/events", h.handleEvent)

	return cors(requestContext(mux))
}

type handler struct {
	ep   *endpoints
	deps Deps
}

// --- search ---

func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.ep.search(r.Context(), &searchReq{
		Dataset: q.Get("dataset"),
		Query:   q.Get("q"),
	})
	respond(w, http.StatusOK, resp, err)
}

// --- normalize ---

func (h *handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.ep.normalize(r.Context(), &normalizeReq{
		Text: q.Get("text"),
		Mode: q.Get("mode"),
	})
	respond(w, http.StatusOK, resp, err)
}

// --- match ---

func (h *handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchReq
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.ep.match(r.Context(), &req)
	respond(w, http.StatusOK, resp, err)
}

// --- list datasets ---

func (h *handler) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ep.listDatasets(r.Context(), nil)
	respond(w, http.StatusOK, resp, err)
}

// --- health ---

type healthResponse struct {
	Status       string `json:"status"`
	Datasets     int    `json:"datasets"`
	TotalRecords int    `json:"total_records"`
	Sessions     int    `json:"sessions"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Datasets:     h.deps.Registry.DatasetCount(),
		TotalRecords: h.deps.Registry.TotalRecords(),
		Sessions:     h.deps.Sessions.Len(),
	})
}

// --- sessions ---

func (h *handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionReq
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.ep.createSession(r.Context(), &req)
	respond(w, http.StatusCreated, resp, err)
}

func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resp, err := h.ep.getSession(kit.WithSessionID(r.Context(), id), &sessionReq{ID: id})
	respond(w, http.StatusOK, resp, err)
}

func (h *handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.ep.deleteSession(kit.WithSessionID(r.Context(), id), &sessionReq{ID: id}); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type httpQueryRequest struct {
	Query string `json:"query"`
}

func (h *handler) handleSetQuery(w http.ResponseWriter, r *http.Request) {
	var req httpQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	resp, err := h.ep.setQuery(kit.WithSessionID(r.Context(), id), &setQueryReq{ID: id, Query: req.Query})
	respond(w, http.StatusOK, resp, err)
}

type httpToggleRequest struct {
	Authorized bool `json:"authorized"`
}

func (h *handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req httpToggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	resp, err := h.ep.toggle(kit.WithSessionID(r.Context(), id), &toggleReq{ID: id, Authorized: req.Authorized})
	respond(w, http.StatusOK, resp, err)
}

func (h *handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventReq
	if !decodeBody(w, r, &req.Event) {
		return
	}
	req.ID = r.PathValue("id")
	resp, err := h.ep.event(kit.WithSessionID(r.Context(), req.ID), &req)
	respond(w, http.StatusOK, resp, err)
}

// --- helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func respond(w http.ResponseWriter, code int, resp any, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestContext tags the request context with the http transport and a
// request id, echoing the id back in X-Request-ID.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
