package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrValidation  ErrorType = "VALIDATION_ERROR"
	ErrAuthFailed  ErrorType = "AUTH_FAILED"
	ErrNotFound    ErrorType = "NOT_FOUND"
	ErrRateLimited ErrorType = "RATE_LIMITED"
	ErrStorage     ErrorType = "STORAGE_ERROR"
	ErrInternal    ErrorType = "INTERNAL_ERROR"
)

// AppError is the error body returned to clients
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewValidation(msg string, cause error) *AppError {
	return New(ErrValidation, msg, cause)
}

func NewStorage(msg string, cause error) *AppError {
	return New(ErrStorage, msg, cause)
}

func NewAuthFailed(msg string) *AppError {
	return New(ErrAuthFailed, msg, nil)
}

// Wrap converts any error into an AppError, keeping existing ones as they are.
// Unknown errors get a fixed message; the original is kept only as Cause.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, "internal server error", err)
}

// Is reports whether err carries the given error type
func Is(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrValidation:
		return "Send a well-formed JSON body or drop the JSON Content-Type."
	case ErrAuthFailed:
		return "Log in via /auth/login and send the token as a Bearer header."
	case ErrRateLimited:
		return "Retry after the time given in the Retry-After header."
	case ErrStorage:
		return "The hit log is unavailable, retry later."
	default:
		return ""
	}
}
