package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the custom instruments. A zero Metrics records nothing.
type Metrics struct {
	toggles config.CustomMetricsConfig

	// AI operations
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business
	FlowsCompleted metric.Int64Counter
	AdminListings  metric.Int64Counter

	// Infrastructure
	AuthDenials     metric.Int64Counter
	RateLimitHits   metric.Int64Counter
	CertReloadCount metric.Int64Counter
}

func newMetrics(meter metric.Meter, toggles config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{toggles: toggles}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram("careercoach_ai_processing_duration_seconds",
		metric.WithDescription("Time spent in AI flows"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AIRequestCount, err = meter.Int64Counter("careercoach_ai_requests_total",
		metric.WithDescription("Total number of AI flow runs")); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}
	if m.AIErrorCount, err = meter.Int64Counter("careercoach_ai_errors_total",
		metric.WithDescription("Total number of failed AI flow runs")); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram("careercoach_ai_token_usage",
		metric.WithDescription("Token usage per AI call"), metric.WithUnit("tokens")); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}
	if m.FlowsCompleted, err = meter.Int64Counter("careercoach_flows_completed_total",
		metric.WithDescription("Flows that returned a validated result")); err != nil {
		return nil, fmt.Errorf("failed to create flows completed metric: %w", err)
	}
	if m.AdminListings, err = meter.Int64Counter("careercoach_admin_user_listings_total",
		metric.WithDescription("Admin user listing requests by response status")); err != nil {
		return nil, fmt.Errorf("failed to create admin listing metric: %w", err)
	}
	if m.AuthDenials, err = meter.Int64Counter("careercoach_auth_denials_total",
		metric.WithDescription("Requests rejected by the session middleware")); err != nil {
		return nil, fmt.Errorf("failed to create auth denial metric: %w", err)
	}
	if m.RateLimitHits, err = meter.Int64Counter("careercoach_rate_limit_hits_total",
		metric.WithDescription("Requests rejected by the rate limiter")); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}
	if m.CertReloadCount, err = meter.Int64Counter("careercoach_cert_reloads_total",
		metric.WithDescription("TLS certificate reloads")); err != nil {
		return nil, fmt.Errorf("failed to create certificate reload metric: %w", err)
	}

	return m, nil
}

// FlowOutcome is what an instrumented flow run reports back
type FlowOutcome struct {
	Err          error
	Cached       bool
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackFlow runs fn inside a span and records AI and business metrics for it
func (m *Metrics) TrackFlow(ctx context.Context, flow types.FlowName, fn func(context.Context) FlowOutcome) error {
	ctx, span := otel.Tracer("careercoach.flow").Start(ctx, "flow."+string(flow))
	defer span.End()

	start := time.Now()
	outcome := fn(ctx)
	duration := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("flow", string(flow)),
		attribute.Bool("success", outcome.Err == nil),
	}
	span.SetAttributes(append(attrs, attribute.Bool("cached", outcome.Cached))...)
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, "flow failed")
	}

	if m.toggles.AIOperations.Enabled && m.AIRequestCount != nil {
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if m.toggles.AIOperations.TrackDuration {
			m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		}
		if outcome.Err != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if m.toggles.AIOperations.TrackTokenUsage && outcome.TotalTokens > 0 {
			m.recordTokens(ctx, flow, outcome)
		}
	}

	if outcome.Err == nil && m.toggles.BusinessMetrics.Enabled && m.FlowsCompleted != nil {
		m.FlowsCompleted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("flow", string(flow)),
			attribute.Bool("cached", outcome.Cached)))
	}

	return outcome.Err
}

func (m *Metrics) recordTokens(ctx context.Context, flow types.FlowName, outcome FlowOutcome) {
	for _, tt := range []struct {
		kind  string
		value int64
	}{
		{"input", outcome.InputTokens},
		{"output", outcome.OutputTokens},
		{"total", outcome.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("flow", string(flow)),
			attribute.String("token_type", tt.kind)))
	}
}

// RecordAdminListing counts an admin user listing by its response status
func (m *Metrics) RecordAdminListing(ctx context.Context, status int) {
	if !m.toggles.BusinessMetrics.Enabled || m.AdminListings == nil {
		return
	}
	m.AdminListings.Add(ctx, 1, metric.WithAttributes(attribute.String("status", strconv.Itoa(status))))
}

// RecordAuthDenial counts a request rejected by the session middleware
func (m *Metrics) RecordAuthDenial(ctx context.Context, reason string) {
	if !m.toggles.Infrastructure.TrackAuthFailures || m.AuthDenials == nil {
		return
	}
	m.AuthDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRateLimitHit counts a request rejected by the rate limiter
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType string) {
	if !m.toggles.Infrastructure.TrackRateLimits || m.RateLimitHits == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}

// RecordCertReload counts a TLS certificate reload attempt
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if !m.toggles.Infrastructure.Enabled || m.CertReloadCount == nil {
		return
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
