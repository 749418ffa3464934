package server

import (
	"context"
	"net/http"
	"time"

	"careercoach/internal/types"
)

// healthTimeout bounds the whole health check
func (s *Server) healthTimeout() time.Duration {
	if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
		return t
	}
	return 5 * time.Second
}

// healthHandler reports model availability, breaker state and the optional
// dependencies. Any unhealthy part makes the reply 503.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.healthTimeout())
	defer cancel()

	healthy := true
	response := map[string]any{
		"status":  "healthy",
		"service": "careercoach",
		"version": s.Version,
	}

	models := s.Coach.ModelInfo(ctx)
	aiStatus := make(map[string]any, len(models))
	for flow, info := range models {
		aiStatus[string(flow)] = info
		if info == nil || !info.Available {
			healthy = false
		}
	}
	response["ai_models"] = aiStatus
	response["circuit_breakers"] = s.checkCircuitBreakerHealth()

	response["identity"] = map[string]any{
		"configured":  s.AppConfig.Auth.ProviderURL != "" && s.AppConfig.Auth.SecretKey != "",
		"provider":    s.AppConfig.Auth.ProviderURL,
		"admin_role":  s.AppConfig.Auth.AdminRole,
		"protected":   s.AppConfig.Auth.ProtectedPrefixes,
		"sign_in_url": s.AppConfig.Auth.SignInURL,
	}

	cacheStatus := dependencyHealth(ctx, s.Cache)
	historyStatus := dependencyHealth(ctx, s.History)
	response["cache"] = cacheStatus
	response["history"] = historyStatus
	for _, status := range []map[string]any{cacheStatus, historyStatus} {
		if status["healthy"] == false {
			healthy = false
		}
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if certStatus["healthy"] == false {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, response)
}

// dependencyHealth pings an optional dependency
func dependencyHealth(ctx context.Context, p Pinger) map[string]any {
	if p == nil {
		return map[string]any{"enabled": false}
	}
	if err := p.Ping(ctx); err != nil {
		return map[string]any{"enabled": true, "healthy": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "healthy": true}
}

// checkCircuitBreakerHealth reports each flow's breaker state
func (s *Server) checkCircuitBreakerHealth() map[string]any {
	stats := s.Coach.CircuitBreakerStats()
	out := make(map[string]any, len(stats))
	for flow, st := range stats {
		out[string(flow)] = st
	}
	return out
}

// checkCertificateHealth grades the serving certificate by time to expiry
func (s *Server) checkCertificateHealth() map[string]any {
	if s.certs == nil {
		return nil
	}

	certStatus := map[string]any{
		"auto_reload": s.certs.watching(),
	}

	timeToExpiry, err := s.certs.timeToExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = err.Error()
		return certStatus
	}

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= 24*time.Hour:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= 7*24*time.Hour:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}
	return certStatus
}

// statsHandler reports rate limiting, the request size limit and the flows
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "careercoach",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"flows": types.AllFlows,
		"rate_limit_config": map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_session":       s.RateLimit.BySession,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	s.writeJSON(w, http.StatusOK, response)
}
