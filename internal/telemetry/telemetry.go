package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Domenick1991/travelbooking/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Shutdown flushes pending spans and stops the provider.
type Shutdown func(context.Context) error

// NewTracerProvider builds a provider for the configured exporter. With the
// none exporter spans are sampled but dropped.
func NewTracerProvider(ctx context.Context, cfg config.TracingConfig, service string, out io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", service),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}

	switch cfg.Exporter {
	case ExporterNone, "":
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case ExporterOTLP:
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// Setup installs the global tracer provider and propagator used by the
// otelhttp and otelgrpc instrumentation and by service spans.
func Setup(ctx context.Context, cfg config.TracingConfig, service string) (Shutdown, error) {
	tp, err := NewTracerProvider(ctx, cfg, service, os.Stdout)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
