package server

import (
	"net/http"
	"testing"

	"careercoach/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsProtected(t *testing.T) {
	prefixes := []string{"/dashboard", "/resume/", "/api/ai"}

	tests := []struct {
		path string
		want bool
	}{
		{"/dashboard", true},
		{"/dashboard/history", true},
		{"/dashboards", false},
		{"/resume", true},
		{"/resume/builder", true},
		{"/api/ai/chat", true},
		{"/api/admin/users", false},
		{"/health", false},
		{"/", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isProtected(tt.path, prefixes))
		})
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	paths := []string{"/dashboard", "/dashboard/history", "/resume", "/interview/mock", "/ai-cover-letter", "/onboarding", "/api/ai/chat"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			env := newTestEnv(t, nil, nil)

			rec := env.do(http.MethodGet, path, "", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", decodeError(t, rec).Error)

			rec = env.do(http.MethodGet, path, "tok_unknown", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestProtectedRouteNeverReachesHandler(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(http.MethodPost, "/api/ai/chat", "", `{"message":"hi"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.provider.callCount())
}

func TestSessionCheckOutage(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.identity.verifyErr = errors.NewNetworkError(errors.ErrCodeIdentityProviderFailed, "introspection returned 502", nil)

	rec := env.do(http.MethodGet, "/dashboard", adminToken, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "introspection")
}

func TestSignInRedirect(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.SignInURL = "https://app.example.com/sign-in"
	env := newTestEnv(t, cfg, nil)

	tests := []struct {
		name   string
		accept string
		want   int
	}{
		{"browser", "text/html,application/xhtml+xml", http.StatusTemporaryRedirect},
		{"api client", "application/json", http.StatusUnauthorized},
		{"no accept header", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(http.MethodGet, "/dashboard")
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := serve(env.handler, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusTemporaryRedirect {
				assert.Equal(t, cfg.Auth.SignInURL, rec.Header().Get("Location"))
			}
		})
	}
}

func TestUnprotectedRoutesSkipSessionCheck(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.identity.verifyErr = errors.NewNetworkError(errors.ErrCodeIdentityProviderFailed, "down", nil)

	rec := env.do(http.MethodGet, "/stats", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(http.MethodGet, "/stats", "", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := newRequest(http.MethodGet, "/stats")
	req.Header.Set("X-Request-ID", "req-123")
	rec = serve(env.handler, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestStatsAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"ops-key-123456"}

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header key", "X-API-Key", "ops-key-123456", http.StatusOK},
		{"bearer key", "Authorization", "Bearer ops-key-123456", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, cfg, nil)
			req := newRequest(http.MethodGet, "/stats")
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			assert.Equal(t, tt.want, serve(env.handler, req).Code)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}
