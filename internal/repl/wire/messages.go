// Package wire defines the WebSocket protocol for the REPL.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/repl/autocomplete"
	"github.com/matthewbaird/oql/internal/repl/meta"
)

// Message types.
const (
	TypeParse        = "parse"
	TypeAutocomplete = "autocomplete"
	TypePing         = "ping"

	TypeSession     = "session"
	TypeAST         = "ast"
	TypeMeta        = "meta"
	TypeError       = "error"
	TypeCompletions = "completions"
	TypePong        = "pong"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "parse", "autocomplete", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseData is the payload for "parse" messages. A query starting with ":"
// is a meta-command.
type ParseData struct {
	Query string `json:"query"`
}

// AutocompleteData is the payload for "autocomplete" messages.
type AutocompleteData struct {
	Query  string `json:"query"`
	Cursor int    `json:"cursor"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "ast", "meta", "error", "completions", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// ASTData describes a parsed statement.
type ASTData struct {
	*analysis.Report
	Unbound []string `json:"unbound,omitempty"` // parameters not bound with :set
}

// MetaData carries meta-command output.
type MetaData = meta.Result

// ErrorData carries an error.
type ErrorData = analysis.ErrorDetail

// CompletionsData carries autocomplete suggestions.
type CompletionsData struct {
	Items []autocomplete.CompletionItem `json:"items"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
}
