// Package export re-emits recorded sessions as OpenTelemetry spans, so
// a stored session can be inspected in Jaeger, Tempo, or any other
// OTLP-compatible backend.
//
// Hierarchy and timestamps are preserved exactly: every span starts and
// ends at its recorded instants, and parent links map to span contexts.
// Events whose start timestamp never parsed are skipped (they have no
// position to emit) and reported.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/agentbox/agentbox/internal/trace"
)

const serviceVersion = "0.1.0"

// Exporter ships recorded sessions to one OTLP collector.
type Exporter struct {
	tp     *sdktrace.TracerProvider
	tracer oteltrace.Tracer
}

// New creates an Exporter for an OTLP HTTP collector endpoint.
// The caller owns the Exporter and must Shutdown it.
func New(ctx context.Context, endpoint, serviceName string) (*Exporter, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return newExporter(tp), nil
}

// newExporter wraps a configured provider. Tests inject one backed by
// an in-memory span recorder.
func newExporter(tp *sdktrace.TracerProvider) *Exporter {
	return &Exporter{
		tp:     tp,
		tracer: tp.Tracer("agentbox/export"),
	}
}

// ExportSession re-emits every event of the session as a span and
// flushes the batch. Events are emitted in chronological order so that
// parents are registered before their children.
func (e *Exporter) ExportSession(ctx context.Context, s *trace.Session) error {
	events := make([]trace.Event, len(s.Events))
	copy(events, s.Events)
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Start, events[j].Start
		if !a.Valid() {
			return false
		}
		if !b.Valid() {
			return true
		}
		return a.Sub(b) < 0
	})

	contexts := make(map[string]oteltrace.SpanContext, len(events))
	skipped := 0
	for i := range events {
		ev := &events[i]
		if !ev.Start.Valid() {
			skipped++
			continue
		}
		contexts[ev.ID] = e.emit(ctx, ev, contexts)
	}
	if skipped > 0 {
		slog.Warn("events without parsable start skipped during export",
			"session_id", s.ID, "skipped", skipped)
	}

	if err := e.tp.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flush spans: %w", err)
	}
	return nil
}

// Shutdown flushes pending spans and releases the provider.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.tp.Shutdown(ctx)
}

func (e *Exporter) emit(ctx context.Context, ev *trace.Event, contexts map[string]oteltrace.SpanContext) oteltrace.SpanContext {
	if ev.ParentID != "" {
		if sc, ok := contexts[ev.ParentID]; ok {
			ctx = oteltrace.ContextWithSpanContext(ctx, sc)
		}
	}

	kind := oteltrace.SpanKindInternal
	if ev.Type == trace.EventLLMCall || ev.Type == trace.EventToolCall {
		kind = oteltrace.SpanKindClient
	}

	_, span := e.tracer.Start(ctx, ev.Name,
		oteltrace.WithTimestamp(ev.Start.Wall()),
		oteltrace.WithSpanKind(kind),
		oteltrace.WithAttributes(eventAttributes(ev)...),
	)

	switch ev.Status {
	case trace.StatusSuccess:
		span.SetStatus(codes.Ok, "")
	case trace.StatusError:
		span.SetStatus(codes.Error, ev.ErrorMessage)
	}

	span.End(oteltrace.WithTimestamp(ev.EndOrStart().Wall()))
	return span.SpanContext()
}

func eventAttributes(ev *trace.Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("event.id", ev.ID),
		attribute.String("event.type", string(ev.Type)),
		attribute.String("event.status", string(ev.Status)),
	}

	for key, value := range ev.Metadata {
		switch v := value.(type) {
		case string:
			attrs = append(attrs, attribute.String("metadata."+key, v))
		case bool:
			attrs = append(attrs, attribute.Bool("metadata."+key, v))
		case int:
			attrs = append(attrs, attribute.Int("metadata."+key, v))
		case float64:
			attrs = append(attrs, attribute.Float64("metadata."+key, v))
		}
	}

	switch ev.Type {
	case trace.EventLLMCall:
		attrs = append(attrs,
			attribute.String("llm.model", ev.Model),
			attribute.String("llm.provider", ev.Provider),
		)
		if ev.Tokens != nil {
			attrs = append(attrs,
				attribute.Int("llm.tokens.prompt", ev.Tokens.Prompt),
				attribute.Int("llm.tokens.completion", ev.Tokens.Completion),
				attribute.Int("llm.tokens.total", ev.Tokens.Total),
			)
		}
	case trace.EventToolCall:
		attrs = append(attrs, attribute.String("tool.name", ev.ToolName))
		if len(ev.Args) > 0 {
			// Argument values may hold payloads; export only the keys.
			keys := make([]string, 0, len(ev.Args))
			for k := range ev.Args {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			attrs = append(attrs, attribute.StringSlice("tool.argument_keys", keys))
		}
	case trace.EventError:
		if ev.ErrorMessage != "" {
			attrs = append(attrs, attribute.String("error.message", ev.ErrorMessage))
		}
	}

	return attrs
}
