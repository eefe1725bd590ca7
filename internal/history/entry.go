// Package history records parse attempts so they can be listed from the
// CLI, the REPL, and the HTTP API.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/oql/internal/oql"
)

// Status values.
const (
	StatusOK             = "ok"
	StatusSyntaxError    = "syntax_error"
	StatusSemanticError  = "semantic_error"
	StatusParameterError = "parameter_error"
	StatusTimeout        = "timeout"
	StatusError          = "error"
)

// Entry is one parse attempt.
type Entry struct {
	ID         string        `json:"id"`
	Query      string        `json:"query"`
	Kind       string        `json:"kind,omitempty"` // select, update, delete; "" when parsing failed
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	SessionID  string        `json:"session_id,omitempty"`
	Source     string        `json:"source"` // cli, http, repl
	Duration   time.Duration `json:"duration"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewEntry builds an entry for the outcome of parsing query.
func NewEntry(source, sessionID, query string, res *oql.Result, err error, took time.Duration) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		Query:      query,
		Status:     StatusOK,
		SessionID:  sessionID,
		Source:     source,
		Duration:   took,
		OccurredAt: time.Now().UTC(),
	}
	if err != nil {
		e.Status = ErrorStatus(err)
		e.Error = err.Error()
		return e
	}
	if res != nil {
		e.Kind = StatementKind(res.Statement)
	}
	return e
}

// ErrorStatus classifies a parse error.
func ErrorStatus(err error) string {
	var syn *oql.SyntaxError
	var sem *oql.SemanticError
	var perr *oql.ParameterError
	switch {
	case errors.As(err, &syn):
		return StatusSyntaxError
	case errors.As(err, &sem):
		return StatusSemanticError
	case errors.As(err, &perr):
		return StatusParameterError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return StatusTimeout
	}
	return StatusError
}

// StatementKind names the statement type.
func StatementKind(stmt oql.Statement) string {
	switch stmt.(type) {
	case *oql.SelectStatement:
		return "select"
	case *oql.UpdateStatement:
		return "update"
	case *oql.DeleteStatement:
		return "delete"
	}
	return ""
}
