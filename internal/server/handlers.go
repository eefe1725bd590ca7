package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/oql"
	"github.com/matthewbaird/oql/internal/schema"
)

type handlers struct {
	registry *schema.Registry
	analyzer *analysis.Analyzer
	store    history.Store
	logger   *slog.Logger
}

type parseRequest struct {
	Query        string         `json:"query"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	TreeWalkers  []string       `json:"tree_walkers,omitempty"`
	OutputWalker string         `json:"output_walker,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
}

func (h *handlers) parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	hints := make(map[string]any)
	if len(req.TreeWalkers) > 0 {
		hints[oql.HintCustomTreeWalkers] = req.TreeWalkers
	}
	if req.OutputWalker != "" {
		hints[oql.HintCustomOutputWalker] = req.OutputWalker
	}

	rep, err := h.analyzer.Analyze(r.Context(), analysis.Request{
		Query:      req.Query,
		Parameters: req.Parameters,
		Hints:      hints,
		Source:     "http",
		SessionID:  req.SessionID,
	})
	if err != nil {
		parseErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handlers) listEntities(w http.ResponseWriter, r *http.Request) {
	entities := h.registry.Entities()
	out := make([]schema.EntityView, len(entities))
	for i, md := range entities {
		out[i] = schema.View(md)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"namespace":  h.registry.DefaultNamespace(),
		"namespaces": h.registry.Namespaces(),
		"entities":   out,
	})
}

func (h *handlers) getEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	md := h.registry.Entity(name)
	if md == nil {
		d := analysis.ErrorDetail{Code: "not_found", Message: "unknown entity " + name}
		if s := oql.SuggestFrom(name, h.registry.EntityNames(), 2); s != "" {
			d.Suggestion = s
		}
		writeJSON(w, http.StatusNotFound, d)
		return
	}
	writeJSON(w, http.StatusOK, schema.View(md))
}

func (h *handlers) listFunctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"functions": schema.FunctionCatalog(h.registry)})
}

type historyPage struct {
	Entries    []history.Entry `json:"entries"`
	NextCursor string          `json:"next_cursor,omitempty"`
	Total      int             `json:"total"`
}

func (h *handlers) listHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := history.DefaultQueryOptions()
	opts.SessionID = q.Get("session")
	opts.Status = q.Get("status")
	opts.Cursor = q.Get("cursor")
	opts.Limit = parseLimit(r, opts.Limit)
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "since must be an RFC 3339 timestamp")
			return
		}
		opts.Since = &since
	}

	entries, next, total, err := h.store.List(r.Context(), opts)
	if err != nil {
		parseErrorToHTTP(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, historyPage{Entries: entries, NextCursor: next, Total: total})
}

func (h *handlers) searchHistory(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q is required")
		return
	}
	entries, err := h.store.Search(r.Context(), text, parseLimit(r, 20))
	if err != nil {
		parseErrorToHTTP(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
