package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"careercoach/internal/errors"
	"careercoach/internal/identity"

	"github.com/google/uuid"
)

type contextKey int

const (
	sessionKey contextKey = iota
	requestIDKey
)

// withSession stores a verified session in the context
func withSession(ctx context.Context, session *identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the session the middleware verified, if any
func SessionFromContext(ctx context.Context) (*identity.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*identity.Session)
	return session, ok && session != nil
}

// RequestIDFromContext returns the request id assigned by requestIDMiddleware
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware tags every request with an X-Request-ID and logs its outcome
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		s.Logger.Debug("Request completed",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// isProtected reports whether path falls under one of the protected prefixes
func isProtected(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// sessionToken reads the session token from the Authorization header or the session cookie
func sessionToken(r *http.Request, cookieName string) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// verifySession checks the request's session with the identity provider.
// Missing and inactive sessions come back as unauthenticated errors.
func (s *Server) verifySession(r *http.Request) (*identity.Session, error) {
	if session, ok := SessionFromContext(r.Context()); ok {
		return session, nil
	}
	token := sessionToken(r, s.AppConfig.Auth.SessionCookie)
	if token == "" {
		return nil, errors.NewUnauthenticatedError(errors.ErrCodeMissingSession, "Sign in required", identity.ErrSessionInactive)
	}
	return s.Identity.VerifySession(r.Context(), token)
}

// sessionMiddleware requires an active session for every protected path
// before the mux dispatches to a handler
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtected(r.URL.Path, s.AppConfig.Auth.ProtectedPrefixes) {
			next.ServeHTTP(w, r)
			return
		}

		session, err := s.verifySession(r)
		if err != nil {
			s.denySession(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

// denySession answers a failed session check: 401, a sign-in redirect for
// browsers, or 500 when the identity provider itself failed
func (s *Server) denySession(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.IsType(err, errors.ErrorTypeUnauthenticated) {
		s.Logger.LogError(err, "Session check failed",
			"endpoint", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()))
		s.metrics.RecordAuthDenial(r.Context(), "provider_error")
		s.writeErrorResponse(w, "Internal server error", "Unable to verify session", http.StatusInternalServerError)
		return
	}

	reason := "inactive_session"
	if appErr, ok := errors.As(err); ok && appErr.Code == errors.ErrCodeMissingSession {
		reason = "missing_session"
	}
	s.metrics.RecordAuthDenial(r.Context(), reason)
	s.Logger.Info("Session required",
		"endpoint", r.URL.Path,
		"reason", reason,
		"client_ip", getClientIP(r))

	if signIn := s.AppConfig.Auth.SignInURL; signIn != "" && strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, signIn, http.StatusTemporaryRedirect)
		return
	}
	s.writeErrorResponse(w, "Unauthorized", "Sign in required", http.StatusUnauthorized)
}

// apiKeyMiddleware guards operator endpoints with the configured API keys
func (s *Server) apiKeyMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				apiKey = after
			}
		}

		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			s.writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next(w, r)
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
