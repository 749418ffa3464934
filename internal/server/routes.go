package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.apiKeyMiddleware(s.statsHandler))

	mux.HandleFunc("/api/admin/users", s.adminUsersHandler)
	mux.HandleFunc("/api/ai/{flow}", s.requestSizeLimitMiddleware(s.flowHandler))

	mux.HandleFunc("/dashboard", s.dashboardHandler)
	mux.HandleFunc("/dashboard/history", s.historyHandler)

	return mux
}

// Handler returns the full middleware chain: request id, rate limit,
// session check, then the routes
func (s *Server) Handler() http.Handler {
	return s.requestIDMiddleware(s.rateLimitMiddleware(s.sessionMiddleware(s.setupRoutes())))
}
