// Package telemetry wires the OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/etfflow-go/internal/config"
)

const (
	// Service information
	ServiceName    = "github.com/irfndi/etfflow-go"
	ServiceVersion = "1.0.0"
)

// Provider owns the process tracer provider.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Shutdown flushes pending spans. A disabled provider shuts down instantly.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Init installs the global tracer provider and W3C propagator. When
// telemetry is disabled the global no-op provider is left in place.
func Init(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		return &Provider{}, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.ServiceName
	if name == "" {
		name = "etfflow"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(ServiceVersion),
	)

	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp}, nil
}

func newExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		hostport, path, insecure, _, err := normalizeOTLPEndpoint(cfg.OTLPEndpoint)
		if err != nil {
			return nil, err
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(hostport),
			otlptracehttp.WithURLPath(path),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		return exp, nil
	default:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		return exp, nil
	}
}

// normalizeOTLPEndpoint splits an OTLP/HTTP base URL into the parts the
// exporter wants, appending /v1/traces unless already present.
func normalizeOTLPEndpoint(raw string) (hostport, urlPath string, insecure bool, resolved string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", false, "", fmt.Errorf("invalid OTLP endpoint %q: expected http(s)://host:port[/path]", raw)
	}

	path := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(path, "/v1/traces") {
		path += "/v1/traces"
	}

	insecure = u.Scheme == "http"
	resolved = fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, path)
	return u.Host, path, insecure, resolved, nil
}

// Tracer returns the service tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}
