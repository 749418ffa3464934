package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"careercoach/internal/ai"
	"careercoach/internal/identity"
	"careercoach/internal/observability"
	"careercoach/internal/types"
)

// maxHistoryLimit caps /dashboard/history page sizes
const maxHistoryLimit = 100

// DashboardResponse is the body of GET /dashboard
type DashboardResponse struct {
	UserID            string             `json:"userId"`
	Role              string             `json:"role,omitempty"`
	HistoryEnabled    bool               `json:"historyEnabled"`
	RecentGenerations []types.Generation `json:"recentGenerations"`
}

// flowHandler runs one AI flow for the signed-in user
func (s *Server) flowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", "Only POST is supported", http.StatusMethodNotAllowed)
		return
	}

	flow, ok := types.ParseFlowName(r.PathValue("flow"))
	if !ok {
		s.writeErrorResponse(w, "Not found", fmt.Sprintf("unknown flow %q", r.PathValue("flow")), http.StatusNotFound)
		return
	}

	body, status, err := readJSONBody(r)
	if err != nil {
		s.writeErrorResponse(w, "Invalid request", err.Error(), status)
		return
	}

	var result *ai.FlowResult
	err = s.metrics.TrackFlow(r.Context(), flow, func(ctx context.Context) observability.FlowOutcome {
		var runErr error
		result, runErr = s.Coach.Run(ctx, flow, body)
		outcome := observability.FlowOutcome{Err: runErr}
		if result != nil {
			outcome.Cached = result.Cached
			if u := result.TokenUsage; u != nil {
				outcome.InputTokens, outcome.OutputTokens, outcome.TotalTokens = u.InputTokens, u.OutputTokens, u.TotalTokens
			}
		}
		return outcome
	})
	if err != nil {
		s.Logger.LogError(err, "Flow failed",
			"flow", flow,
			"request_id", RequestIDFromContext(r.Context()))
		s.writeAppError(w, err)
		return
	}

	if session, ok := SessionFromContext(r.Context()); ok {
		s.recordGeneration(r, session, flow, body, result)
	}

	if result.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	s.writeJSON(w, http.StatusOK, result.Output)
}

// recordGeneration stores a completed flow. Storage failures are logged and
// do not fail the request.
func (s *Server) recordGeneration(r *http.Request, session *identity.Session, flow types.FlowName, input []byte, result *ai.FlowResult) {
	if s.History == nil {
		return
	}
	if _, err := s.History.Record(r.Context(), session.UserID, flow, input, result.Output); err != nil {
		s.Logger.LogError(err, "Failed to record generation",
			"flow", flow,
			"user_id", session.UserID)
	}
}

// readJSONBody checks the content type and reads the request body
func readJSONBody(r *http.Request) ([]byte, int, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, http.StatusUnsupportedMediaType, fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, http.StatusRequestEntityTooLarge,
				fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, http.StatusOK, nil
}

// dashboardHandler returns the caller's id and latest generations
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.verifySession(r)
	if err != nil {
		s.denySession(w, r, err)
		return
	}

	resp := DashboardResponse{
		UserID:            session.UserID,
		Role:              session.Role,
		HistoryEnabled:    s.History != nil,
		RecentGenerations: []types.Generation{},
	}
	if s.History != nil {
		generations, err := s.History.ListByUser(r.Context(), session.UserID, "", s.AppConfig.History.RecentLimit)
		if err != nil {
			s.Logger.LogError(err, "Failed to load recent generations", "user_id", session.UserID)
			s.writeAppError(w, err)
			return
		}
		resp.RecentGenerations = generations
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// historyHandler returns the caller's generations, optionally for one flow
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.verifySession(r)
	if err != nil {
		s.denySession(w, r, err)
		return
	}

	q := r.URL.Query()
	var flow types.FlowName
	if name := q.Get("flow"); name != "" {
		parsed, ok := types.ParseFlowName(name)
		if !ok {
			s.writeErrorResponse(w, "Invalid request", fmt.Sprintf("unknown flow %q", name), http.StatusBadRequest)
			return
		}
		flow = parsed
	}

	limit := s.AppConfig.History.RecentLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeErrorResponse(w, "Invalid request", "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	if s.History == nil {
		s.writeJSON(w, http.StatusOK, []types.Generation{})
		return
	}

	generations, err := s.History.ListByUser(r.Context(), session.UserID, flow, limit)
	if err != nil {
		s.Logger.LogError(err, "Failed to load generation history", "user_id", session.UserID)
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, generations)
}
