package observability

import (
	"context"
	stderrors "errors"
	"testing"

	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func allMetricsOn() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		AIOperations:    config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
		BusinessMetrics: config.BusinessMetricsConfig{Enabled: true},
		Infrastructure:  config.InfrastructureMetricsConfig{Enabled: true, TrackRateLimits: true, TrackAuthFailures: true},
	}
}

func newTestMetrics(t *testing.T, toggles config.CustomMetricsConfig) (*Metrics, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := newMetrics(mp.Meter("test"), toggles)
	require.NoError(t, err)
	return m, reader
}

// sums collects every counter total by metric name
func sums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					out[md.Name] += dp.Value
				}
			}
		}
	}
	return out
}

func TestTrackFlow(t *testing.T) {
	m, reader := newTestMetrics(t, allMetricsOn())
	ctx := context.Background()

	err := m.TrackFlow(ctx, types.FlowChat, func(context.Context) FlowOutcome {
		return FlowOutcome{InputTokens: 3, OutputTokens: 4, TotalTokens: 7}
	})
	require.NoError(t, err)

	boom := stderrors.New("boom")
	err = m.TrackFlow(ctx, types.FlowChat, func(context.Context) FlowOutcome {
		return FlowOutcome{Err: boom}
	})
	assert.ErrorIs(t, err, boom)

	got := sums(t, reader)
	assert.Equal(t, int64(2), got["careercoach_ai_requests_total"])
	assert.Equal(t, int64(1), got["careercoach_ai_errors_total"])
	assert.Equal(t, int64(1), got["careercoach_flows_completed_total"])
}

func TestInfrastructureMetrics(t *testing.T) {
	tests := []struct {
		name    string
		toggles config.CustomMetricsConfig
		want    int64
	}{
		{"enabled", allMetricsOn(), 1},
		{"disabled", config.CustomMetricsConfig{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.toggles)
			ctx := context.Background()

			m.RecordAuthDenial(ctx, "missing_session")
			m.RecordRateLimitHit(ctx, "ip")
			m.RecordAdminListing(ctx, 200)
			m.RecordCertReload(ctx, true)

			got := sums(t, reader)
			assert.Equal(t, tt.want, got["careercoach_auth_denials_total"])
			assert.Equal(t, tt.want, got["careercoach_rate_limit_hits_total"])
			assert.Equal(t, tt.want, got["careercoach_admin_user_listings_total"])
			assert.Equal(t, tt.want, got["careercoach_cert_reloads_total"])
		})
	}
}

func TestZeroMetricsAreNoOps(t *testing.T) {
	m := &Metrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordAuthDenial(ctx, "x")
		m.RecordRateLimitHit(ctx, "ip")
		m.RecordAdminListing(ctx, 500)
		m.RecordCertReload(ctx, false)
		_ = m.TrackFlow(ctx, types.FlowChat, func(context.Context) FlowOutcome { return FlowOutcome{} })
	})
}

func TestDisabledManager(t *testing.T) {
	mgr, err := NewManager(config.ObservabilityConfig{Enabled: false}, "test", errors.Nop())
	require.NoError(t, err)

	assert.NotNil(t, mgr.Metrics())
	assert.NotNil(t, mgr.Tracer("x"))
	assert.NotNil(t, mgr.HTTPMiddleware())
	assert.NoError(t, mgr.Shutdown(context.Background()))

	var nilMgr *Manager
	assert.NotNil(t, nilMgr.Metrics())
}
