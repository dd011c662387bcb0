package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeInternal          ErrorType = "internal"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeTransient         ErrorType = "transient"
	ErrorTypeSchemaUnavailable ErrorType = "schema_unavailable"
	ErrorTypeConflict          ErrorType = "conflict"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
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

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// NewTransientError classifies store timeouts and connection failures.
// Composed endpoints substitute safe defaults for these; standalone
// endpoints surface them so callers can retry with backoff.
func NewTransientError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTransient,
		Code:       "STORE_UNAVAILABLE",
		Message:    message,
		Retryable:  true,
		StatusCode: 503,
	}
}

// NewSchemaUnavailableError marks an optional table or column as not
// provisioned. Callers treat this as "feature not enabled", never as a
// failure.
func NewSchemaUnavailableError(feature string) *AppError {
	return &AppError{
		Type:       ErrorTypeSchemaUnavailable,
		Code:       "FEATURE_NOT_PROVISIONED",
		Message:    fmt.Sprintf("%s storage is not provisioned", feature),
		Retryable:  false,
		StatusCode: 200,
		Details:    map[string]interface{}{"feature": feature},
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       "CONFLICT",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

// Predefined common errors
var (
	ErrInvalidInput      = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrComplaintNotFound = NewNotFoundError("complaint")
	ErrProfileNotFound   = NewNotFoundError("accused profile")
	ErrClusterNotFound   = NewNotFoundError("suspicious cluster")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Classify maps a raw store error onto the taxonomy. Deadline and
// cancellation errors are transient; anything unrecognized is internal.
func Classify(err error, message string) *AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewTransientError(message).WithCause(err)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
