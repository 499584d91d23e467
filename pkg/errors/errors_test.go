package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewAppError(ErrValidation, http.StatusBadRequest, "validation failed", "limit must be positive")
	assert.Equal(t, "VALIDATION_ERROR: validation failed - limit must be positive", err.Error())

	bare := NewAppError(ErrNotFound, http.StatusNotFound, "record not found")
	assert.Equal(t, "NOT_FOUND: record not found", bare.Error())
}

func TestErrorTypeThroughWrapping(t *testing.T) {
	inner := NewRateLimitedError("daily limit reached")
	wrapped := fmt.Errorf("generate insight: %w", inner)

	assert.True(t, IsErrorType(wrapped, ErrRateLimited))
	assert.False(t, IsErrorType(wrapped, ErrValidation))
	assert.Equal(t, ErrRateLimited, GetErrorType(wrapped))
	assert.Equal(t, http.StatusTooManyRequests, GetStatusCode(wrapped))
}

func TestGetStatusCodeDefaultsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(errors.New("boom")))
	assert.Equal(t, "", GetErrorType(errors.New("boom")))
}

func TestStoreUnavailableUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreUnavailableError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
	assert.Equal(t, "connection refused", err.Details)
}
