package server

import (
	"encoding/json"
	"net/http"

	"careercoach/internal/errors"
)

// writeJSON writes v with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.LogError(err, "Failed to encode response", "status", status)
	}
}

// writeErrorResponse writes a standardized error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

// writeAppError answers with the status errors.HTTPStatus assigns to err.
// Caller mistakes echo the error message and field list; upstream and
// internal failures get a generic message so provider details stay in the logs.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	resp := ErrorResponse{Error: http.StatusText(status)}

	appErr, ok := errors.As(err)
	if ok {
		resp.Code = appErr.Code
	}

	switch {
	case !ok:
		resp.Message = "Internal server error"
	case appErr.Code == errors.ErrCodeInvalidAIResponse:
		resp.Message = "The AI service returned an invalid response"
	case status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
		resp.Message = "The AI service is unavailable"
	case status >= http.StatusInternalServerError:
		resp.Message = "Internal server error"
	default:
		resp.Message = appErr.Message
		resp.Details = appErr.Fields
	}

	s.writeJSON(w, status, resp)
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
