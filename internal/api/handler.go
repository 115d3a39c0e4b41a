package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/obsidianstack/offpage/internal/alerts"
	"github.com/obsidianstack/offpage/internal/config"
	"github.com/obsidianstack/offpage/internal/offpage"
	"github.com/obsidianstack/offpage/internal/store"
	"github.com/obsidianstack/offpage/internal/ws"
	"github.com/obsidianstack/offpage/pkg/types"
)

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 64 << 10

// Analyzer produces an off-page result for a URL.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) (types.OffPageResult, error)
}

// Metrics is the part of the metrics registry the API needs.
type Metrics interface {
	AlertFired(severity string)
	Handler() http.Handler
}

// Publisher is the live-update hub. Analysis events are delivered only to
// subscribers of the owning session.
type Publisher interface {
	http.Handler
	PublishSession(sessionID, event string, v any)
}

// Deps holds everything the API serves from. Alerts, Metrics and Hub are
// optional.
type Deps struct {
	Store   *store.Store
	Engine  Analyzer
	Alerts  *alerts.Engine
	Metrics Metrics
	Hub     Publisher
	Auth    config.AuthConfig
}

// Handler is the HTTP handler for the REST API.
type Handler struct {
	deps   Deps
	router chi.Router
}

// New creates a Handler wired to d and registers all routes.
func New(d Deps) http.Handler {
	h := &Handler{deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	guard := APIKey(d.Auth.Mode, d.Auth.EffectiveHeader(), d.Auth.Key())
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(guard)
		r.Post("/sessions", h.createSession)
		r.Get("/sessions/{id}", h.getSession)
		r.Patch("/sessions/{id}", h.updateSession)
		r.Delete("/sessions/{id}", h.deleteSession)
		r.Get("/sessions/{id}/analyses", h.listAnalyses)
		r.Post("/sessions/{id}/analyses", h.analyze)
		r.Get("/analyses/{id}", h.getAnalysis)
		r.Delete("/analyses/{id}", h.deleteAnalysis)
		r.Get("/stats", h.stats)
		r.Get("/alerts", h.alerts)
	})
	if d.Hub != nil {
		r.With(guard).Get("/ws/stats", h.stream)
	}

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createSession handles POST /api/v1/sessions. An empty body is accepted.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.deps.Store.CreateSession(req.UserID)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Language != "" {
		lang := req.Language
		h.deps.Store.UpdateSession(s.ID, store.SessionUpdate{Language: &lang})
		s.Language = lang
	}
	jsonResp(w, http.StatusCreated, s)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.Store.GetSession(chi.URLParam(r, "id"))
	if !ok {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	jsonResp(w, http.StatusOK, s)
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var u store.SessionUpdate
	if err := decodeBody(w, r, &u, false); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.deps.Store.UpdateSession(id, u) {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	s, ok := h.deps.Store.GetSession(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	jsonResp(w, http.StatusOK, s)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Store.DeleteSession(chi.URLParam(r, "id")) {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	list, ok := h.deps.Store.ListBySession(chi.URLParam(r, "id"))
	if !ok {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	jsonResp(w, http.StatusOK, list)
}

// analyze handles POST /api/v1/sessions/{id}/analyses: score the URL, save
// the result under the session, evaluate alert rules and publish the result
// to live subscribers.
func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, ok := h.deps.Store.GetSession(sessionID); !ok {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}

	var req analyzeRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		jsonErr(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := h.deps.Engine.Analyze(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, offpage.ErrInvalidURL) {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	saved, err := h.deps.Store.SaveAnalysis(sessionID, res)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			jsonErr(w, http.StatusNotFound, "session not found")
			return
		}
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.deps.Alerts != nil {
		for _, a := range h.deps.Alerts.Evaluate(saved) {
			if h.deps.Metrics != nil {
				h.deps.Metrics.AlertFired(a.Severity)
			}
		}
	}
	if h.deps.Hub != nil {
		h.deps.Hub.PublishSession(saved.SessionID, ws.EventAnalysis, saved)
	}

	jsonResp(w, http.StatusCreated, AnalysisResponse{
		AnalysisResult:  saved,
		Recommendations: recommend(&saved.OffPage),
	})
}

func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := h.deps.Store.GetAnalysis(chi.URLParam(r, "id"))
	if !ok {
		jsonErr(w, http.StatusNotFound, "analysis not found")
		return
	}
	jsonResp(w, http.StatusOK, AnalysisResponse{
		AnalysisResult:  a,
		Recommendations: recommend(&a.OffPage),
	})
}

func (h *Handler) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Store.DeleteAnalysis(chi.URLParam(r, "id")) {
		jsonErr(w, http.StatusNotFound, "analysis not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, h.deps.Store.Stats())
}

// stream handles GET /ws/stats. A ?session= subscription must name an
// existing session.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get(ws.SessionParam); id != "" {
		if _, ok := h.deps.Store.GetSession(id); !ok {
			jsonErr(w, http.StatusNotFound, "session not found")
			return
		}
	}
	h.deps.Hub.ServeHTTP(w, r)
}

func (h *Handler) alerts(w http.ResponseWriter, _ *http.Request) {
	list := []alerts.Alert{}
	if h.deps.Alerts != nil {
		list = h.deps.Alerts.Active()
	}
	jsonResp(w, http.StatusOK, list)
}

// --- helpers ----------------------------------------------------------------

// decodeBody decodes a JSON request body into v. When allowEmpty is set a
// missing body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
