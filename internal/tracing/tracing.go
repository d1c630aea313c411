// Package tracing records machine activity as OpenTelemetry spans: one span
// per dispatched process step, with an event for every system call made
// during it. A nil *Tracer and a nil *Span are valid no-ops, so callers do
// not need to check whether tracing is enabled.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "slate/machine"

// Tracer owns a tracer provider for one machine.
type Tracer struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// New returns a Tracer writing spans as JSON to w via the stdout exporter.
func New(w io.Writer, serviceName, serviceVersion, bootID string) (*Tracer, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return NewWithExporter(exporter, serviceName, serviceVersion, bootID)
}

// NewWithExporter returns a Tracer exporting spans synchronously to
// exporter.
func NewWithExporter(exporter sdktrace.SpanExporter, serviceName, serviceVersion, bootID string) (*Tracer, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
			attribute.String("boot.id", bootID),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	return &Tracer{tp: tp, tracer: tp.Tracer(instrumentationName)}, nil
}

// Shutdown flushes and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}

// Span wraps one process step.
type Span struct {
	span trace.Span
}

// StartStep starts the span for one step of process pid at the given tick.
func (t *Tracer) StartStep(ctx context.Context, pid int, name string, tick uint64) (context.Context, *Span) {
	if t == nil {
		return ctx, nil
	}
	ctx, span := t.tracer.Start(ctx, "proc.step",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("proc.pid", pid),
			attribute.String("proc.name", name),
			attribute.Int64("kernel.tick", int64(tick)),
		),
	)
	return ctx, &Span{span: span}
}

// Syscall records a completed system call on the span.
func (s *Span) Syscall(op string, rc int32) {
	if s == nil {
		return
	}
	s.span.AddEvent("syscall", trace.WithAttributes(
		attribute.String("syscall.op", op),
		attribute.Int("syscall.rc", int(rc)),
	))
}

// End finishes the span, recording err if the step failed.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
