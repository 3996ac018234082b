// Package tracing configures OpenTelemetry span export for scan runs.
//
// The engine and scanner always create spans through the global tracer
// provider. Until Setup installs an exporter those spans go nowhere.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/duration"
)

// Options configures the exporter.
type Options struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "pocscan").
	ServiceName string

	// Insecure uses a plaintext gRPC connection.
	Insecure bool

	// Headers are sent with every export request.
	Headers map[string]string

	// ShutdownTimeout bounds the final flush (default: 5s).
	ShutdownTimeout time.Duration

	// Exporter replaces the OTLP exporter. Endpoint is ignored when set.
	Exporter sdktrace.SpanExporter
}

// Provider owns the installed tracer provider.
type Provider struct {
	tp       *sdktrace.TracerProvider
	previous trace.TracerProvider
	timeout  time.Duration
}

// Setup builds an exporter and installs a batching tracer provider as the
// global one. With neither Endpoint nor Exporter set it returns a Provider
// whose Shutdown does nothing.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = duration.TelemetryShutdown
	}
	p := &Provider{timeout: opts.ShutdownTimeout}

	exporter := opts.Exporter
	if exporter == nil {
		if opts.Endpoint == "" {
			return p, nil
		}
		var err error
		exporter, err = newOTLPExporter(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("tracing: create exporter: %w", err)
		}
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "scanner"),
	)

	p.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	p.previous = otel.GetTracerProvider()
	otel.SetTracerProvider(p.tp)
	return p, nil
}

func newOTLPExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}
	return otlptracegrpc.New(ctx, exporterOpts...)
}

// Enabled reports whether spans are being exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.tp != nil
}

// Tracer returns a tracer from the installed provider, or from the global
// one when nothing was installed.
func (p *Provider) Tracer(name string) trace.Tracer {
	if !p.Enabled() {
		return otel.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes pending spans and restores the previous global provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.tp.Shutdown(ctx)
	otel.SetTracerProvider(p.previous)
	p.tp = nil
	return err
}
