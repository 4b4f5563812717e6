package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/irfndi/etfflow-go/internal/config"
)

func TestNormalizeOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		hostport string
		urlPath  string
		insecure bool
		resolved string
		wantErr  bool
	}{
		{"default localhost", "http://localhost:4318", "localhost:4318", "/v1/traces", true, "http://localhost:4318/v1/traces", false},
		{"trailing slash base", "http://collector:4318/", "collector:4318", "/v1/traces", true, "http://collector:4318/v1/traces", false},
		{"already traces path", "http://collector:4318/v1/traces", "collector:4318", "/v1/traces", true, "http://collector:4318/v1/traces", false},
		{"custom base path", "https://otlp.example.com:4318/otlp", "otlp.example.com:4318", "/otlp/v1/traces", false, "https://otlp.example.com:4318/otlp/v1/traces", false},
		{"invalid no scheme", "collector:4318", "", "", true, "", true},
		{"unsupported scheme", "grpc://collector:4317", "", "", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp, path, insecure, resolved, err := normalizeOTLPEndpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hostport, hp)
			assert.Equal(t, tt.urlPath, path)
			assert.Equal(t, tt.insecure, insecure)
			assert.Equal(t, tt.resolved, resolved)
		})
	}
}

func TestInit_Disabled(t *testing.T) {
	provider, err := Init(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(context.Background()))

	_, span := Tracer().Start(context.Background(), "noop")
	span.SetAttributes(attribute.String("k", "v"))
	span.End()
}

func TestInit_Stdout(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	provider, err := Init(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "etfflow-test",
		SampleRate:  1,
	})
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "test-span")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestInit_InvalidOTLPEndpoint(t *testing.T) {
	_, err := Init(context.Background(), config.TelemetryConfig{
		Enabled:      true,
		Exporter:     "otlp",
		OTLPEndpoint: "collector:4318",
	})
	assert.Error(t, err)
}

func TestProvider_NilShutdown(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
