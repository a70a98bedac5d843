package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with full technical detail server-side (with the
// chi request ID for correlation) and returned to the client as a sanitized
// JSON body: {"detail": "..."} plus an "errors" array when a bulk import
// collected row-level problems.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/museodigital/catalog/internal/catalog"
	"github.com/museodigital/catalog/internal/importer"
	"github.com/museodigital/catalog/internal/service"
)

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Detail string   `json:"detail"`
	Errors []string `json:"errors,omitempty"`
}

// respondError maps an error to a status code and sanitized message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := mapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, status, errorResponse{Detail: detail})
}

// mapError translates service and pipeline errors into HTTP semantics.
// Unknown errors collapse to a generic 500 so internals never leak.
func mapError(err error) (int, string) {
	// Persistence failures during an import carry the row that failed and
	// how many rows committed before it; the client needs both.
	var execErr *importer.ExecuteError
	if errors.As(err, &execErr) {
		return http.StatusInternalServerError, execErr.Error()
	}

	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, importer.ErrInvalidArchive),
		errors.Is(err, importer.ErrInvalidSpreadsheet):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrTooManyImports):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeJSON encodes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Error("json encode error", "error", err)
	}
}

// logError records an error for a request whose response is already partly
// written, so no error body can be sent anymore.
func (s *Server) logError(r *http.Request, err error) {
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)
}

// writeError writes a plain JSON error message.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
