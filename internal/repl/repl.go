// Package repl provides the WebSocket-based REPL for OQL queries.
package repl

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/repl/autocomplete"
	"github.com/matthewbaird/oql/internal/repl/meta"
	"github.com/matthewbaird/oql/internal/repl/session"
	"github.com/matthewbaird/oql/internal/repl/wire"
	"github.com/matthewbaird/oql/internal/schema"
)

// Deps are the collaborators of the REPL routes.
type Deps struct {
	Registry *schema.Registry
	Analyzer *analysis.Analyzer
	Sessions *session.Manager
	Store    history.Store
	Logger   *slog.Logger

	ParseTimeout time.Duration // per REPL parse; wire.DefaultParseTimeout when zero
}

// RegisterRoutes registers REPL HTTP and WebSocket routes on the given router.
func RegisterRoutes(r chi.Router, deps Deps) {
	ac := autocomplete.New(deps.Registry)
	metaHandler := meta.New(deps.Registry, deps.Store)
	wsHandler := wire.NewHandler(deps.Sessions, deps.Analyzer, ac, metaHandler, deps.Logger)
	wsHandler.ParseTimeout = deps.ParseTimeout

	r.Route("/api/repl", func(r chi.Router) {
		r.Get("/ws", wsHandler.ServeHTTP)

		// Session create endpoint (REST alternative to WebSocket)
		r.Post("/session", func(w http.ResponseWriter, r *http.Request) {
			sess := deps.Sessions.Create()
			writeJSON(w, http.StatusCreated, sess.Snapshot())
		})

		r.Get("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_id", "invalid session id")
				return
			}
			sess := deps.Sessions.Get(id.String())
			if sess == nil {
				writeError(w, http.StatusNotFound, "not_found", "session not found or expired")
				return
			}
			writeJSON(w, http.StatusOK, sess.Snapshot())
		})

		r.Delete("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
			deps.Sessions.Remove(chi.URLParam(r, "id"))
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, analysis.ErrorDetail{Code: code, Message: message})
}
