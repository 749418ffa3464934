package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"careercoach/internal/errors"
	"careercoach/internal/identity"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(60, 2, errors.Nop())
	defer rl.Close()

	assert.True(t, rl.Allow("ip:10.0.0.1"))
	assert.True(t, rl.Allow("ip:10.0.0.1"))
	assert.False(t, rl.Allow("ip:10.0.0.1"))
	assert.True(t, rl.Allow("ip:10.0.0.2"), "keys have independent buckets")

	assert.Equal(t, 2, rl.GetStats()["active_limiters"])

	rl.cleanup(0)
	assert.Equal(t, 0, rl.GetStats()["active_limiters"])

	rl.Close()
	assert.NotPanics(t, rl.Close)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RequestsPerMin = 60
	cfg.Server.RateLimit.BurstCapacity = 1
	cfg.Server.RateLimit.ByIP = true
	env := newTestEnv(t, cfg, nil)

	first := env.do(http.MethodPost, "/api/ai/chat", memberToken, `{"message":"hi"}`)
	second := env.do(http.MethodPost, "/api/ai/chat", memberToken, `{"message":"hi"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, 1, env.provider.callCount())

	// only /api/ traffic is throttled
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/stats", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/stats", "", "").Code)
}

func TestRateLimitKey(t *testing.T) {
	member := &identity.Session{UserID: "user_member", Role: "member"}

	tests := []struct {
		name      string
		session   *identity.Session
		bySession bool
		byIP      bool
		wantKey   string
		wantType  string
	}{
		{"verified subject preferred", member, true, true, "user:user_member", "session"},
		{"no verified session falls back to ip", nil, true, true, "ip:192.0.2.7", "ip"},
		{"session without subject falls back to ip", &identity.Session{}, true, true, "ip:192.0.2.7", "ip"},
		{"ip only", member, false, true, "ip:192.0.2.7", "ip"},
		{"disabled", member, false, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(http.MethodPost, "/api/ai/chat")
			req.RemoteAddr = "192.0.2.7:5123"

			key, keyType := rateLimitKey(req, tt.session, tt.bySession, tt.byIP)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantType, keyType)
		})
	}
}

func TestRateLimitBySessionIgnoresUnverifiedTokens(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RequestsPerMin = 60
	cfg.Server.RateLimit.BurstCapacity = 1
	cfg.Server.RateLimit.ByIP = true
	cfg.Server.RateLimit.BySession = true
	env := newTestEnv(t, cfg, nil)

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
		req.RemoteAddr = "192.0.2.7:5123"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// random tokens from one address share the IP bucket
	assert.Equal(t, http.StatusUnauthorized, send("tok_random_1"))
	assert.Equal(t, http.StatusTooManyRequests, send("tok_random_2"))

	// a verified session gets its own bucket keyed by subject
	assert.Equal(t, http.StatusForbidden, send(memberToken))
	assert.Equal(t, http.StatusTooManyRequests, send(memberToken))
	assert.Equal(t, http.StatusOK, send(adminToken))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "198.51.100.4:443", "198.51.100.4"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "garbage, 203.0.113.9, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.10"}, "10.0.0.1:1", "203.0.113.10"},
		{"bad real ip", map[string]string{"X-Real-IP": "nope"}, "10.0.0.1:1", "10.0.0.1"},
		{"no port", nil, "10.0.0.3", "10.0.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(http.MethodGet, "/")
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
