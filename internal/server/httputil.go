package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/matthewbaird/oql/internal/analysis"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("writeJSON encode error", "error", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, analysis.ErrorDetail{Code: code, Message: message})
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

const maxBodyBytes = 1 << 20

// parseLimit reads the limit query parameter, falling back to def and
// capping at 500.
func parseLimit(r *http.Request, def int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return min(limit, 500)
}

// parseErrorToHTTP maps a parse error to an HTTP response.
func parseErrorToHTTP(w http.ResponseWriter, logger *slog.Logger, err error) {
	d := analysis.Describe(err)
	switch d.Code {
	case analysis.CodeSyntax, analysis.CodeSemantic, analysis.CodeParameter:
		writeJSON(w, http.StatusBadRequest, d)
	case analysis.CodeTimeout:
		writeJSON(w, http.StatusGatewayTimeout, d)
	default:
		logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, analysis.CodeInternal, "internal server error")
	}
}
