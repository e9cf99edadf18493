// Package errors provides the standardized error model shared by the HTTP
// surface, the orchestrator and the grant stores.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeAdminForbidden   ErrorCode = "ADMIN_FORBIDDEN"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"

	ErrCodeRewriteServiceFailed ErrorCode = "REWRITE_SERVICE_FAILED"
	ErrCodeRewriteTimeout       ErrorCode = "REWRITE_TIMEOUT"

	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewUnauthorizedError is returned when no valid access grant was presented.
func NewUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeUnauthorized, "Access grant missing or expired", details, false, nil)
}

// NewStoreUnavailableError wraps a grant store failure. Lookups that hit it
// are treated as unauthorized.
func NewStoreUnavailableError(backend string, err error) *StandardError {
	return newError(ErrCodeStoreUnavailable, "Access store unavailable",
		fmt.Sprintf("backend: %s, error: %v", backend, err), true, err)
}

func NewAdminForbiddenError() *StandardError {
	return newError(ErrCodeAdminForbidden, "Admin key missing or invalid", "", false, nil)
}

// NewValidationFailedError reports invalid user input.
func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Submission validation failed", details, false, nil)
}

func NewBadRequestError(details string) *StandardError {
	return newError(ErrCodeBadRequest, "Malformed request", details, false, nil)
}

// NewRewriteServiceFailedError wraps a completion service failure.
func NewRewriteServiceFailedError(err error) *StandardError {
	return newError(ErrCodeRewriteServiceFailed, "Rewrite service error", err.Error(), true, err)
}

func NewRewriteTimeoutError(err error) *StandardError {
	return newError(ErrCodeRewriteTimeout, "Rewrite service timeout", err.Error(), true, err)
}

func NewRateLimitedError() *StandardError {
	return newError(ErrCodeRateLimited, "Too many submissions, slow down", "", true, nil)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// HTTPStatus maps an error code to the status used by JSON endpoints.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeAdminForbidden:
		return http.StatusForbidden
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeRewriteServiceFailed:
		return http.StatusBadGateway
	case ErrCodeRewriteTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "UNAUTHORIZED") || strings.Contains(codeStr, "ADMIN"):
		return "ACCESS"
	case strings.Contains(codeStr, "STORE"):
		return "STORAGE"
	case strings.Contains(codeStr, "REWRITE"):
		return "AI"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "BAD_REQUEST"):
		return "VALIDATION"
	case strings.Contains(codeStr, "RATE"):
		return "ABUSE"
	default:
		return "OTHER"
	}
}
