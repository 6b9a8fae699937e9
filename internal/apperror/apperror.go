// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services and repositories return these errors; only the handler layer
// knows how to turn them into HTTP status codes (see handler/response.go),
// and only the CLI knows how to turn them into exit codes.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrProviderExchange and ErrProviderProfile report failures of the
	// external identity provider. They are never retried.
	ErrProviderExchange = errors.New("provider exchange failed")
	ErrProviderProfile  = errors.New("provider profile failed")

	// ErrConfiguration is fatal: the process must not start serving.
	ErrConfiguration = errors.New("configuration error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error from a collaborator
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// either one.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when a request carries no valid session.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

func ProviderExchange(cause error) *AppError {
	return &AppError{
		Err:     ErrProviderExchange,
		Message: "exchanging authorization code",
		Cause:   cause,
	}
}

func ProviderProfile(cause error) *AppError {
	return &AppError{
		Err:     ErrProviderProfile,
		Message: "fetching provider profile",
		Cause:   cause,
	}
}

// Configuration reports every missing or invalid setting at once, so an
// operator can fix the environment in a single pass.
func Configuration(keys ...string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: "missing or invalid settings: " + strings.Join(keys, ", "),
	}
}
