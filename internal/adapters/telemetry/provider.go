// Package telemetry implements ports.Tracer/ports.Span over OpenTelemetry,
// used by the scheduler to wrap each task and group execution in a span.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskflow/engine/internal/core/ports"
)

var setupOnce sync.Once

// setupOTel installs an SDK-backed TracerProvider as the global provider.
// Without this, otel.Tracer() falls back to a no-op implementation that
// produces invalid span contexts; the SDK provider gives every span a
// real, propagatable trace/span ID even though no exporter is attached.
func setupOTel() {
	setupOnce.Do(func() {
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
	})
}

// OTelTracer implements ports.Tracer using OpenTelemetry.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer creates a tracer reporting spans under instrumentation name.
func NewOTelTracer(name string) *OTelTracer {
	setupOTel()
	return &OTelTracer{tracer: otel.Tracer(name)}
}

// Start begins a new span named name.
func (t *OTelTracer) Start(ctx context.Context, name string) (context.Context, ports.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &OTelSpan{span: span}
}

// OTelSpan implements ports.Span using an OpenTelemetry trace.Span.
type OTelSpan struct {
	span trace.Span
}

// End completes the span.
func (s *OTelSpan) End() { s.span.End() }

// RecordError records err against the span and marks its status as an error.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}
