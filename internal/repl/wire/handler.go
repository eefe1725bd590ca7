package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/repl/autocomplete"
	"github.com/matthewbaird/oql/internal/repl/meta"
	"github.com/matthewbaird/oql/internal/repl/session"
)

// DefaultParseTimeout bounds a single REPL parse when ParseTimeout is zero.
const DefaultParseTimeout = 5 * time.Second

// Handler manages WebSocket connections for the REPL.
type Handler struct {
	sessions     *session.Manager
	analyzer     *analysis.Analyzer
	autocomplete *autocomplete.Engine
	meta         *meta.Handler
	logger       *slog.Logger

	// ParseTimeout is the deadline for each parse message.
	ParseTimeout time.Duration
}

// NewHandler creates a WebSocket handler with all dependencies.
func NewHandler(
	sessions *session.Manager,
	analyzer *analysis.Analyzer,
	ac *autocomplete.Engine,
	metaHandler *meta.Handler,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sessions:     sessions,
		analyzer:     analyzer,
		autocomplete: ac,
		meta:         metaHandler,
		logger:       logger,
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. A client may
// resume a session created through the REST endpoint with ?session=<id>.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("repl: websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	sess := h.sessions.Get(r.URL.Query().Get("session"))
	if sess == nil {
		sess = h.sessions.Create()
	}
	ctx := r.Context()
	logger := h.logger.With("session", sess.ID)
	logger.Debug("repl: connected")

	h.send(ctx, conn, ServerMessage{
		Type: TypeSession,
		Data: SessionData{SessionID: sess.ID},
	})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				logger.Debug("repl: connection closed", "status", status)
			}
			return
		}
		sess.Touch()

		switch msg.Type {
		case TypeParse:
			h.handleParse(ctx, conn, sess, msg)
		case TypeAutocomplete:
			h.handleAutocomplete(ctx, conn, msg)
		case TypePing:
			h.send(ctx, conn, ServerMessage{Type: TypePong, RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleParse(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var data ParseData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid parse data")
		return
	}

	query := strings.TrimSpace(data.Query)
	if query == "" {
		h.sendError(ctx, conn, msg.ID, "empty_query", "empty query")
		return
	}

	if meta.IsCommand(query) {
		result, err := h.meta.Execute(ctx, sess, query)
		if err != nil {
			h.sendError(ctx, conn, msg.ID, "meta_error", err.Error())
			return
		}
		h.send(ctx, conn, ServerMessage{Type: TypeMeta, RequestID: msg.ID, Data: result})
		return
	}

	sess.AddHistory(query)

	timeout := h.ParseTimeout
	if timeout <= 0 {
		timeout = DefaultParseTimeout
	}
	parseCtx, cancel := context.WithTimeout(ctx, timeout)
	report, err := h.analyzer.Analyze(parseCtx, analysis.Request{
		Query:     query,
		Source:    "repl",
		SessionID: sess.ID,
	})
	cancel()
	if err != nil {
		d := analysis.Describe(err)
		h.send(ctx, conn, ServerMessage{Type: TypeError, RequestID: msg.ID, Data: d})
		return
	}

	h.send(ctx, conn, ServerMessage{
		Type:      TypeAST,
		RequestID: msg.ID,
		Data:      ASTData{Report: report, Unbound: report.Unbound(sess.Parameters())},
	})
}

func (h *Handler) handleAutocomplete(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data AutocompleteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid autocomplete data")
		return
	}

	items := h.autocomplete.Complete(data.Query, data.Cursor)
	if items == nil {
		items = []autocomplete.CompletionItem{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      TypeCompletions,
		RequestID: msg.ID,
		Data:      CompletionsData{Items: items},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug("repl: write error", "error", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
