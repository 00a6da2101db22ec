// Package tracing sets up the OpenTelemetry tracer provider used for
// action and provider spans.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Provider owns the tracer provider and its shutdown.
type Provider struct {
	tracer trace.Tracer
	sdk    *sdktrace.TracerProvider
}

// Setup builds a tracer provider for the named exporter and installs it as
// the global provider. "none" (or empty) yields a no-op tracer. w is where
// the stdout exporter writes; nil means os.Stderr.
func Setup(serviceName, version, exporter string, w io.Writer) (*Provider, error) {
	var exp sdktrace.SpanExporter
	switch exporter {
	case ExporterNone, "":
		return &Provider{tracer: noop.NewTracerProvider().Tracer(serviceName)}, nil
	case ExporterStdout:
		if w == nil {
			w = os.Stderr
		}
		var err error
		exp, err = stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown tracing exporter: %q", exporter)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tracer: tp.Tracer(serviceName), sdk: tp}, nil
}

// Tracer returns the configured tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans. It is a no-op for the "none" exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
