package analysis

import (
	"context"
	"errors"

	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/oql"
)

// Error codes returned to clients.
const (
	CodeSyntax    = "syntax_error"
	CodeSemantic  = "semantic_error"
	CodeParameter = "parameter_error"
	CodeTimeout   = "timeout"
	CodeInternal  = "internal_error"
)

// ErrorDetail is the client-facing form of a parse error.
type ErrorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Position   *int   `json:"position,omitempty"`
	Near       string `json:"near,omitempty"`
	Expected   string `json:"expected,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Describe classifies err.
func Describe(err error) ErrorDetail {
	var syn *oql.SyntaxError
	var sem *oql.SemanticError
	switch {
	case errors.As(err, &syn):
		pos := syn.Got.Pos
		return ErrorDetail{Code: CodeSyntax, Message: syn.Message, Position: &pos, Expected: syn.Expected}
	case errors.As(err, &sem):
		pos := sem.Pos
		return ErrorDetail{Code: CodeSemantic, Message: sem.Message, Position: &pos, Near: sem.Near, Suggestion: sem.Suggestion}
	case history.ErrorStatus(err) == history.StatusParameterError:
		return ErrorDetail{Code: CodeParameter, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorDetail{Code: CodeTimeout, Message: err.Error()}
	}
	return ErrorDetail{Code: CodeInternal, Message: err.Error()}
}

// IsClientError reports whether err was caused by the query itself.
func IsClientError(err error) bool {
	switch Describe(err).Code {
	case CodeSyntax, CodeSemantic, CodeParameter:
		return true
	}
	return false
}
