package server

import (
	"context"
	"encoding/json"
	"time"

	"careercoach/internal/ai"
	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/identity"
	"careercoach/internal/observability"
	"careercoach/internal/types"
)

// FlowRunner runs AI flows and reports on their providers
type FlowRunner interface {
	Run(ctx context.Context, flow types.FlowName, body []byte) (*ai.FlowResult, error)
	ModelInfo(ctx context.Context) map[types.FlowName]*ai.ModelInfo
	CircuitBreakerStats() map[types.FlowName]map[string]any
}

// HistoryStore persists completed generations
type HistoryStore interface {
	Record(ctx context.Context, userID string, flow types.FlowName, input, output json.RawMessage) (*types.Generation, error)
	ListByUser(ctx context.Context, userID string, flow types.FlowName, limit int) ([]types.Generation, error)
	Ping(ctx context.Context) error
}

// Pinger is any dependency the health check can ping
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Code    string              `json:"code,omitempty"`
	Details []errors.FieldError `json:"details,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config
	TLSConfig config.TLSConfig

	// Operator keys guarding /stats
	APIKeys map[string]bool

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	RateLimit   config.RateLimitConfig
	RateLimiter *RateLimiter

	Coach    FlowRunner
	Identity identity.Provider
	History  HistoryStore
	Cache    Pinger

	metrics *observability.Metrics
	certs   *certReloader
	Logger  *errors.Logger
}

// Dependencies are the collaborators a Server delegates to. Coach and
// Identity are required; History and Cache are optional.
type Dependencies struct {
	Coach    FlowRunner
	Identity identity.Provider
	History  HistoryStore
	Cache    Pinger
}

// NewServer creates a Server from the application configuration
func NewServer(appCfg *config.Config, version string, deps Dependencies, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range appCfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if appCfg.Server.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			appCfg.Server.RateLimit.RequestsPerMin,
			appCfg.Server.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      appCfg.Server.TLS,
		APIKeys:        apiKeyMap,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.Server.MaxRequestSize,
		RateLimit:      appCfg.Server.RateLimit,
		RateLimiter:    rateLimiter,
		Coach:          deps.Coach,
		Identity:       deps.Identity,
		History:        deps.History,
		Cache:          deps.Cache,
		metrics:        &observability.Metrics{},
		Logger:         logger,
	}
}

// SetMetrics replaces the no-op metrics the server starts with
func (s *Server) SetMetrics(m *observability.Metrics) {
	if m != nil {
		s.metrics = m
	}
}
