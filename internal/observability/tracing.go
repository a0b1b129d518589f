package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const forwardTracerName = "auditfeed/forwarding"

type contextKey string

const (
	requestIDKey contextKey = "observability.request_id"
	routeKey     contextKey = "observability.route"
	contentIDKey contextKey = "observability.content_id"
)

// Span is the application-level tracing span contract.
type Span interface {
	End()
	RecordError(error)
}

type otelSpan struct {
	inner trace.Span
}

// StartDeliverySpan starts a span covering retrieve-and-ship for one
// notified content item.
func StartDeliverySpan(ctx context.Context, contentID, contentType string) (context.Context, Span) {
	ctx, span := otel.Tracer(forwardTracerName).Start(ctx, "forward.content",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("feed.content_id", strings.TrimSpace(contentID)),
			attribute.String("feed.content_type", strings.TrimSpace(contentType)),
		),
	)
	ctx = context.WithValue(ctx, contentIDKey, strings.TrimSpace(contentID))
	return ctx, otelSpan{inner: span}
}

// StartJournalSpan starts a span covering one delivery-journal statement.
func StartJournalSpan(ctx context.Context, operation string) (context.Context, Span) {
	ctx, span := otel.Tracer(forwardTracerName).Start(ctx, "journal."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "sqlite")),
	)
	return ctx, otelSpan{inner: span}
}

// StartReconcileSpan starts a span covering one reconciliation run.
func StartReconcileSpan(ctx context.Context) (context.Context, Span) {
	ctx, span := otel.Tracer(forwardTracerName).Start(ctx, "reconcile.subscriptions",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, otelSpan{inner: span}
}

// WithRequestMetadata enriches context and current span with request metadata.
func WithRequestMetadata(ctx context.Context, requestID, route string) context.Context {
	requestID = strings.TrimSpace(requestID)
	route = strings.TrimSpace(route)
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}
	if route != "" {
		ctx = context.WithValue(ctx, routeKey, route)
	}
	setSpanRequestAttributes(ctx, requestID, route)
	return ctx
}

// RequestIDFromContext extracts request id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(requestIDKey).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// RouteFromContext extracts normalized route path.
func RouteFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(routeKey).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// ContentIDFromContext extracts the content id of the delivery in flight.
func ContentIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(contentIDKey).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func setSpanRequestAttributes(ctx context.Context, requestID, route string) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 2)
	if requestID != "" {
		attrs = append(attrs, attribute.String("request.id", requestID))
	}
	if route != "" {
		attrs = append(attrs, attribute.String("http.route", route))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func (s otelSpan) End() {
	if s.inner == nil {
		return
	}
	s.inner.End()
}

func (s otelSpan) RecordError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}
