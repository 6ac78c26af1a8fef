// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type ShutdownFunc func(context.Context) error

// Setup exports spans over OTLP/HTTP to endpoint. With no endpoint the global
// no-op provider stays in place and the returned shutdown does nothing.
func Setup(ctx context.Context, endpoint, serviceName string) (ShutdownFunc, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	tp := NewProvider(sdktrace.WithBatcher(exporter), serviceName)
	otel.SetTracerProvider(tp)
	log.Printf("tracing enabled endpoint=%s service=%s", endpoint, serviceName)
	return tp.Shutdown, nil
}

// NewProvider builds a tracer provider tagged with the service name.
func NewProvider(processor sdktrace.TracerProviderOption, serviceName string) *sdktrace.TracerProvider {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = "brd-assistant"
	}
	return sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
}
