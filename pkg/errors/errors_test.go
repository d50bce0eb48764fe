package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrMissingSession, ErrUnsupportedMedia,
		ErrConflict, ErrServiceUnavail, ErrRateLimited,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("redis connection lost")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "redis connection lost")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "wishlist not found"}
	assert.Equal(t, "NOT_FOUND: wishlist not found", appErr.Error())
}

func TestNotFound(t *testing.T) {
	err := NotFound("product", "p-42")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "p-42")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("session id is required")
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestUnavailable_WrapsCauseAndSentinel(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Unavailable("wishlist backend", cause)

	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "wishlist backend is unavailable", err.Message)
}

func TestRateLimited(t *testing.T) {
	err := RateLimited()
	assert.Equal(t, http.StatusTooManyRequests, err.Status)
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Conflict("busy"), http.StatusConflict},
		{"wrapped not found", fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped invalid input", fmt.Errorf("decode: %w", ErrInvalidInput), http.StatusBadRequest},
		{"missing session", ErrMissingSession, http.StatusUnauthorized},
		{"not json", ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestMissingSession(t *testing.T) {
	err := MissingSession("X-Session-ID")
	assert.Equal(t, CodeUnauthorized, err.Code)
	assert.Equal(t, http.StatusUnauthorized, err.Status)
	assert.Equal(t, "X-Session-ID header is required", err.Message)
	assert.True(t, errors.Is(err, ErrMissingSession))
}

func TestUnsupportedMediaType(t *testing.T) {
	err := UnsupportedMediaType()
	assert.Equal(t, CodeUnsupportedMedia, err.Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, err.Status)
	assert.NotEmpty(t, err.Message)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		status  int
		message string
	}{
		{"app error keeps its message", NotFound("order", "o-1"), CodeNotFound, http.StatusNotFound, "order with id o-1 not found"},
		{"wrapped not found hides detail", fmt.Errorf("load snapshot s-1: %w", ErrNotFound), CodeNotFound, http.StatusNotFound, "resource not found"},
		{"wrapped invalid input shows detail", fmt.Errorf("page must be positive: %w", ErrInvalidInput), CodeInvalidInput, http.StatusBadRequest, "page must be positive: invalid input"},
		{"unavailable", fmt.Errorf("save: %w", ErrServiceUnavail), CodeUnavailable, http.StatusServiceUnavailable, "a dependency is unavailable"},
		{"unknown", errors.New("pq: password authentication failed"), CodeInternal, http.StatusInternalServerError, "an internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, status, message := Classify(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.NotContains(t, err.Message, "disk full")
	assert.True(t, errors.Is(err, cause))
}
