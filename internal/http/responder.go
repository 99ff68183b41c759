package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/meetsburg/internal/application"
	"github.com/example/meetsburg/internal/logging"
)

type errorResponse struct {
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps the application error taxonomy onto HTTP
// statuses. Expected outcomes travel back without server-side error logs;
// only unexpected failures are logged here.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, "unknown error")
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message:     "validation failed",
			FieldErrors: vErr.FieldErrors,
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, "the requested resource was not found")
	case errors.Is(err, application.ErrInvalidPassword):
		r.writeError(ctx, w, http.StatusForbidden, "invalid meet password")
	case errors.Is(err, application.ErrBusy):
		w.Header().Set("Retry-After", "1")
		r.writeError(ctx, w, http.StatusServiceUnavailable, "storage is busy, try again")
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
		r.writeError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
