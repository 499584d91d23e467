// pkg/errors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types
const (
	ErrValidation         = "VALIDATION_ERROR"
	ErrNotFound           = "NOT_FOUND"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN"
	ErrRateLimited        = "RATE_LIMITED"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrStoreUnavailable   = "STORE_UNAVAILABLE"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrBadRequest         = "BAD_REQUEST"
)

// AppError represents a custom application error
type AppError struct {
	Type       string `json:"type"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(errorType string, statusCode int, message string, details ...string) *AppError {
	var detail string
	if len(details) > 0 {
		detail = details[0]
	}

	return &AppError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Details:    detail,
	}
}

// Wrap attaches an underlying cause to a new AppError
func Wrap(err error, errorType string, statusCode int, message string) *AppError {
	appErr := NewAppError(errorType, statusCode, message)
	appErr.Err = err
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetErrorType extracts the error type from an error
func GetErrorType(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// GetStatusCode extracts the status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Helper functions to create common errors
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrUnauthorized, http.StatusUnauthorized, message)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, http.StatusForbidden, message)
}

func NewValidationError(message string, details ...string) *AppError {
	return NewAppError(ErrValidation, http.StatusBadRequest, message, details...)
}

func NewRateLimitedError(message string) *AppError {
	return NewAppError(ErrRateLimited, http.StatusTooManyRequests, message)
}

func NewStoreUnavailableError(err error) *AppError {
	return Wrap(err, ErrStoreUnavailable, http.StatusServiceUnavailable, "rate limit store unavailable")
}
