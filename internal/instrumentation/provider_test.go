package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "todoagent-test", Enabled: false})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.PrometheusEnabled())
	require.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))

	// Recording on the disabled recorder is a no-op.
	provider.Metrics().RecordBatchRun(context.Background(), StatusSuccess, time.Second)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderExporters(t *testing.T) {
	tests := []struct {
		name           string
		metrics        string
		tracing        string
		endpoint       string
		wantErr        bool
		wantPrometheus bool
	}{
		{name: "prometheus", metrics: ExporterPrometheus, tracing: ExporterNone, wantPrometheus: true},
		{name: "stdout", metrics: ExporterStdout, tracing: ExporterStdout},
		{name: "unknown metrics exporter", metrics: "graphite", tracing: ExporterNone, wantErr: true},
		{name: "unknown tracing exporter", metrics: ExporterPrometheus, tracing: "jaeger", wantErr: true},
		{name: "otlp tracing without endpoint", metrics: ExporterPrometheus, tracing: ExporterOTLP, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, Config{
				ServiceName:     "todoagent-test",
				ServiceVersion:  "1.0.0",
				Enabled:         true,
				MetricsExporter: tt.metrics,
				TracingExporter: tt.tracing,
				OTLPEndpoint:    tt.endpoint,
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { assert.NoError(t, provider.Shutdown(ctx)) }()

			assert.True(t, provider.Enabled())
			assert.Equal(t, tt.wantPrometheus, provider.PrometheusEnabled())
			assert.NotNil(t, provider.Metrics())
			assert.NotNil(t, provider.Tracer("test"))
		})
	}
}
