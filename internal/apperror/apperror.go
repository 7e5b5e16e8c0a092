package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrAuthRefresh     = errors.New("auth refresh failed")
	ErrUpstream        = errors.New("upstream error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error, never shown to clients
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id of %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation on field (e.g. "email").
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with that %s already exists", resource, field),
		Field:   field,
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

// Unauthenticated covers bad credentials and missing or expired sessions.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Unauthorized is returned when the caller is not the owner of a resource.
// It is mapped to 401 rather than 404, so existence of the resource is visible.
func Unauthorized(action, resource string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: fmt.Sprintf("Not authorized to %s this %s", action, resource),
	}
}

func QuotaExceeded(message string) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: message,
	}
}

// AuthRefreshFailed wraps a failed OAuth refresh. The user has to reconnect.
func AuthRefreshFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrAuthRefresh,
		Message: "Spotify authorization expired, please reconnect your Spotify account",
		Cause:   cause,
	}
}

// Upstream wraps a failure of an external service. The message names the
// service only; the cause stays server-side.
func Upstream(service string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s request failed", service),
		Cause:   cause,
	}
}
