package errors

import (
	"fmt"
	"net/http"
)

// APIError is the error body every handler responds with
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return newError(ErrForbidden, message)
}

// Conflict creates a CONFLICT error
func Conflict(resource string) *APIError {
	return newError(ErrConflict, fmt.Sprintf("%s already exists or is in an invalid state", resource))
}

// ValidationError creates a VALIDATION_ERROR bound to a request field
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

// InvalidDate creates an INVALID_DATE error for malformed plan dates
func InvalidDate(value string) *APIError {
	e := newError(ErrInvalidDate, "date must be formatted as YYYY-MM-DD")
	e.Field = "date"
	e.Details = value
	return e
}

// InvalidPlanDay creates an INVALID_PLAN_DAY error
func InvalidPlanDay(day int) *APIError {
	e := newError(ErrInvalidPlanDay, "plan day must be between 1 and 365")
	e.Field = "day"
	e.Details = fmt.Sprintf("%d", day)
	return e
}

// Locked creates a LOCKED error for discussions closed to new comments
func Locked(resource string) *APIError {
	return newError(ErrLocked, fmt.Sprintf("%s is locked", resource))
}

// InternalError creates an INTERNAL_ERROR
func InternalError(message string) *APIError {
	return newError(ErrInternalError, message)
}

// AlreadyExists creates an ALREADY_EXISTS error
func AlreadyExists(resource string) *APIError {
	return newError(ErrAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newError(ErrRateLimited, message)
}

// ServiceUnavailable creates a SERVICE_UNAVAILABLE error
func ServiceUnavailable(service string) *APIError {
	return newError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

// Timeout creates a TIMEOUT error
func Timeout(operation string) *APIError {
	e := newError(ErrTimeout, fmt.Sprintf("%s timed out", operation))
	e.Status = http.StatusGatewayTimeout
	return e
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}
