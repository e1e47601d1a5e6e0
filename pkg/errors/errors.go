package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard error codes
const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeNotFound               = "RESOURCE_NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeCapacityConflict       = "CAPACITY_CONFLICT"
	CodeDependencyUnavailable  = "DEPENDENCY_UNAVAILABLE"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeInternalError          = "INTERNAL_ERROR"
	CodeBadRequest             = "BAD_REQUEST"
	CodeTimeout                = "TIMEOUT"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Validation errors

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error with field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// Resource errors

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID creates a not found error with ID
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// Lifecycle errors

// ErrInvalidStateTransition creates an error for a disallowed status change.
// The message names the current status and the attempted action so callers
// can refresh and retry from the real state.
func ErrInvalidStateTransition(currentStatus, attempted string) *AppError {
	return NewAppError(
		CodeInvalidStateTransition,
		fmt.Sprintf("cannot %s a task in status %q", attempted, currentStatus),
		http.StatusConflict,
	).WithDetail("currentStatus", currentStatus).WithDetail("attempted", attempted)
}

// ErrCapacityConflict creates an error for a bin that can no longer hold the quantity
func ErrCapacityConflict(binCode string, quantity int) *AppError {
	return NewAppError(
		CodeCapacityConflict,
		fmt.Sprintf("bin %s cannot accept %d units", binCode, quantity),
		http.StatusConflict,
	).WithDetail("binCode", binCode)
}

// ErrDependencyUnavailable creates an error for an unreachable upstream dependency
func ErrDependencyUnavailable(dependency string) *AppError {
	return NewAppError(
		CodeDependencyUnavailable,
		fmt.Sprintf("%s is unavailable", dependency),
		http.StatusServiceUnavailable,
	).WithDetail("dependency", dependency)
}

// Authentication/Authorization errors

// ErrUnauthorized creates an unauthorized error
func ErrUnauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(CodeUnauthorized, message, http.StatusUnauthorized)
}

// ErrForbidden creates a forbidden error
func ErrForbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(CodeForbidden, message, http.StatusForbidden)
}

// Internal errors

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrTimeout creates a timeout error
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts a standard error to an AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return ErrInternal("").Wrap(err)
}

// MapDomainError maps common domain error messages to AppErrors
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "not found"):
		return ErrNotFound("resource").Wrap(err)
	case strings.Contains(msg, "already exists"):
		return ErrConflict(err.Error()).Wrap(err)
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "required"):
		return ErrValidation(err.Error()).Wrap(err)
	case strings.Contains(msg, "unauthorized"):
		return ErrUnauthorized(err.Error()).Wrap(err)
	case strings.Contains(msg, "forbidden"), strings.Contains(msg, "permission denied"):
		return ErrForbidden(err.Error()).Wrap(err)
	case strings.Contains(msg, "timeout"):
		return ErrTimeout("operation").Wrap(err)
	default:
		return ErrInternal("").Wrap(err)
	}
}
