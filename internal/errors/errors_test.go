package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError(ErrCodeSchemaViolation, "bad", nil), http.StatusBadRequest},
		{"invalid ai response", NewValidationError(ErrCodeInvalidAIResponse, "bad reply", nil), http.StatusBadGateway},
		{"unauthenticated", NewUnauthenticatedError(ErrCodeMissingSession, "no session", nil), http.StatusUnauthorized},
		{"unauthorized", NewUnauthorizedError(ErrCodeForbiddenRole, "not admin", nil), http.StatusForbidden},
		{"ai failure", NewAIError(ErrCodeAIServiceFailed, "boom", nil), http.StatusBadGateway},
		{"ai timeout", NewAIError(ErrCodeAITimeout, "slow", nil), http.StatusGatewayTimeout},
		{"identity failure", NewNetworkError(ErrCodeIdentityProviderFailed, "down", nil), http.StatusInternalServerError},
		{"plain error", fmt.Errorf("plain"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("wrap: %w", NewUnauthorizedError(ErrCodeForbiddenRole, "x", nil)), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestAppErrorChain(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewNetworkError(ErrCodeIdentityProviderFailed, "list users", cause).
		WithContext("status_code", 503).
		WithFields([]FieldError{{Field: "limit", Message: "too large"}})

	assert.Equal(t, "IDENTITY_PROVIDER_FAILED: list users (caused by: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 503, err.Context["status_code"])
	require.Len(t, err.Fields, 1)

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeNetwork))
	assert.False(t, IsType(wrapped, ErrorTypeAI))

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, err, got)
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			logger, err := New(level)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}

	_, err := New("verbose")
	assert.Error(t, err)
}
