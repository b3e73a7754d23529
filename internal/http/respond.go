package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps the error Kind to a status. Persistence and unclassified
// failures are logged and reported without internals.
func handleError(w http.ResponseWriter, log *zap.Logger, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
		return
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		respondError(w, http.StatusBadRequest, "invalid_argument", cause(err))
	case domain.KindNotFound:
		respondError(w, http.StatusNotFound, "not_found", cause(err))
	case domain.KindConflict:
		respondError(w, http.StatusConflict, "conflict", cause(err))
	default:
		log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// cause is the innermost sentinel message, safe to show to clients.
func cause(err error) string {
	var e *domain.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
