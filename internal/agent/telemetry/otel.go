package telemetry

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// StdLogger is a Logger that writes structured lines to the standard
	// library logger. It is the default non-noop logger: no third-party
	// structured logging library is exercised anywhere else in the codebase
	// this system is grounded on, so the ambient logging sink is implemented
	// directly against log.Logger rather than importing one for a single
	// call site.
	StdLogger struct {
		out *log.Logger
	}

	// otelMetrics is a Metrics implementation whose methods discard every
	// observation; it records nothing and forwards nothing to OTEL.
	otelMetrics struct{}

	otelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}
)

// NewStdLogger constructs a Logger backed by the standard library logger.
func NewStdLogger(out *log.Logger) Logger {
	if out == nil {
		out = log.Default()
	}
	return &StdLogger{out: out}
}

func (l *StdLogger) log(level, ctx string, msg string, keyvals []any) {
	line := fmt.Sprintf("level=%s msg=%q", level, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		line += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	l.out.Print(line)
}

func (l *StdLogger) Debug(_ context.Context, msg string, keyvals ...any) { l.log("debug", "", msg, keyvals) }
func (l *StdLogger) Info(_ context.Context, msg string, keyvals ...any)  { l.log("info", "", msg, keyvals) }
func (l *StdLogger) Warn(_ context.Context, msg string, keyvals ...any)  { l.log("warn", "", msg, keyvals) }
func (l *StdLogger) Error(_ context.Context, msg string, keyvals ...any) { l.log("error", "", msg, keyvals) }

// NewOTelMetrics returns a Metrics recorder. Present mainly so callers have a
// non-noop option without standing up a full meter provider; swap for a real
// OTEL meter-backed implementation once a MeterProvider is configured.
func NewOTelMetrics() Metrics { return otelMetrics{} }

func (otelMetrics) IncCounter(string, float64, ...string)        {}
func (otelMetrics) RecordTimer(string, time.Duration, ...string) {}
func (otelMetrics) RecordGauge(string, float64, ...string)       {}

// NewOTelTracer returns a Tracer backed by the global OTEL TracerProvider,
// scoped to the given instrumentation name.
func NewOTelTracer(name string) Tracer {
	return &otelTracer{tracer: otel.Tracer(name)}
}

func (t *otelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, &otelSpan{span: span}
}

func (s *otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *otelSpan) AddEvent(name string, keyvals ...any) {
	attrs := make([]attributeKV, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		attrs = append(attrs, attributeKV{key: fmt.Sprint(keyvals[i]), val: fmt.Sprint(keyvals[i+1])})
	}
	s.span.AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
}

func (s *otelSpan) SetStatus(code codes.Code, description string) { s.span.SetStatus(code, description) }

func (s *otelSpan) RecordError(err error, opts ...trace.EventOption) { s.span.RecordError(err, opts...) }
