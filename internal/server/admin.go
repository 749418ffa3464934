package server

import (
	"net/http"
	"strconv"

	"careercoach/internal/errors"
	"careercoach/internal/identity"
)

// adminUsersHandler lists identity provider users for administrators.
// The body is a bare array of public user records.
func (s *Server) adminUsersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	status := s.listUsers(w, r)
	s.metrics.RecordAdminListing(r.Context(), status)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) int {
	session, err := s.verifySession(r)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeUnauthenticated) {
			s.writeErrorResponse(w, "Unauthorized", "Sign in required", http.StatusUnauthorized)
			return http.StatusUnauthorized
		}
		s.Logger.LogError(err, "Session check failed for admin listing")
		s.writeErrorResponse(w, "Internal server error", "Unable to verify session", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}

	if !session.HasRole(s.AppConfig.Auth.AdminRole) {
		s.Logger.Info("Admin listing denied", "user_id", session.UserID, "role", session.Role)
		s.writeErrorResponse(w, "Forbidden", "Administrator role required", http.StatusForbidden)
		return http.StatusForbidden
	}

	users, err := s.Identity.ListUsers(r.Context(), pageParams(r))
	if err != nil {
		s.Logger.LogError(err, "Failed to list users", "user_id", session.UserID)
		s.writeErrorResponse(w, "Internal server error", "Failed to fetch users", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}

	s.writeJSON(w, http.StatusOK, identity.PublicUsers(users))
	return http.StatusOK
}

// pageParams reads limit and offset. Malformed values fall back to defaults;
// the identity client applies the page size cap.
func pageParams(r *http.Request) identity.ListUsersParams {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return identity.ListUsersParams{Limit: limit, Offset: max(offset, 0)}
}
