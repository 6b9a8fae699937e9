package handler

// RESPONSE HELPERS:
// These functions standardise how we send responses and errors.
//
// The HTML routes (/, /add, /delete, the OAuth callback) answer errors with
// a short plain-text message, since htmx shows it as-is. The JSON route
// (/api/notes) answers with an ErrorResponse:
//   {"error": "not_found", "message": "note not found with id abc123"}
//
// Both go through statusFor, so a domain error maps to the same status code
// everywhere.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sakif/notes/internal/apperror"
)

// ErrorResponse is the error body of the JSON API.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// statusFor maps a domain error to an HTTP status code and a machine-readable
// error type.
//
// errors.Is() UNWRAPPING:
// errors.Is walks the whole chain, so this works for
//
//	fmt.Errorf("service/feed: deleting note: %w", apperror.NotFound("note", id))
//
// just as it does for the bare AppError.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrProviderExchange), errors.Is(err, apperror.ErrProviderProfile):
		return http.StatusBadGateway, "provider_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// messageFor returns the text shown to the client. Server-side failures get
// a fixed message; the raw error may contain SQL or file paths.
func messageFor(err error, status int) string {
	switch status {
	case http.StatusInternalServerError:
		return "Internal Server Error"
	case http.StatusBadGateway:
		return "Login with GitHub failed, please try again."
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return http.StatusText(status)
}

// writeTextError answers an HTML route with a plain-text error.
func writeTextError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
	http.Error(w, messageFor(err, status), status)
}

// writeJSON sends data as JSON with the given status code.
//
// render.Status stores the code in the request context; render.JSON reads
// it back, sets Content-Type and encodes the body.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// writeError answers a JSON route with an ErrorResponse.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, errorType := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
	writeJSON(w, r, status, ErrorResponse{
		Error:   errorType,
		Message: messageFor(err, status),
	})
}
