package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/bucketmap"
	"github.com/hyp3rd/bucketmap/internal/telemetry/attrs"
)

// OTelTracingMiddleware wraps bucketmap.Map methods with OpenTelemetry spans.
type OTelTracingMiddleware[K comparable, V any] struct {
	next   bucketmap.Map[K, V]
	tracer trace.Tracer
	// parent of every span; the capability interface carries no context
	ctx context.Context //nolint:containedctx
	// static attributes applied to all spans
	commonAttrs []attribute.KeyValue
	recordKeys  bool
}

// OTelTracingOption allows configuring the tracing middleware.
type OTelTracingOption func(*otelTracingSettings)

type otelTracingSettings struct {
	commonAttrs []attribute.KeyValue
	recordKeys  bool
}

// WithCommonAttributes sets attributes applied to all spans.
func WithCommonAttributes(attributes ...attribute.KeyValue) OTelTracingOption {
	return func(s *otelTracingSettings) { s.commonAttrs = append(s.commonAttrs, attributes...) }
}

// WithKeyRecording adds the formatted key to keyed spans. Off by default since keys may
// carry user data.
func WithKeyRecording() OTelTracingOption {
	return func(s *otelTracingSettings) { s.recordKeys = true }
}

// NewOTelTracingMiddleware creates a tracing middleware. Spans are children of ctx.
func NewOTelTracingMiddleware[K comparable, V any](
	ctx context.Context,
	next bucketmap.Map[K, V],
	tracer trace.Tracer,
	opts ...OTelTracingOption,
) bucketmap.Map[K, V] {
	settings := &otelTracingSettings{}
	for _, o := range opts {
		o(settings)
	}

	return &OTelTracingMiddleware[K, V]{
		next:        next,
		tracer:      tracer,
		ctx:         ctx,
		commonAttrs: settings.commonAttrs,
		recordKeys:  settings.recordKeys,
	}
}

// Clear implements Map.Clear with tracing.
func (mw *OTelTracingMiddleware[K, V]) Clear() {
	span := mw.startSpan("bucketmap.Clear")
	defer span.End()

	mw.next.Clear()
}

// Insert implements Map.Insert with tracing.
func (mw *OTelTracingMiddleware[K, V]) Insert(key K, value V, onSuccess func()) bool {
	span := mw.startSpan("bucketmap.Insert", mw.keyAttrs(key)...)
	defer span.End()

	ok := mw.next.Insert(key, value, onSuccess)
	span.SetAttributes(attribute.Bool(attrs.AttrOK, ok))

	return ok
}

// Upsert implements Map.Upsert with tracing.
func (mw *OTelTracingMiddleware[K, V]) Upsert(key K, value V, onInsert, onUpdate func()) bool {
	span := mw.startSpan("bucketmap.Upsert", mw.keyAttrs(key)...)
	defer span.End()

	inserted := mw.next.Upsert(key, value, onInsert, onUpdate)
	span.SetAttributes(attribute.Bool(attrs.AttrOK, inserted))

	return inserted
}

// DoWith implements Map.DoWith with tracing.
func (mw *OTelTracingMiddleware[K, V]) DoWith(key K, mutate func(value *V), onSuccess func()) bool {
	span := mw.startSpan("bucketmap.DoWith", mw.keyAttrs(key)...)
	defer span.End()

	ok := mw.next.DoWith(key, mutate, onSuccess)
	span.SetAttributes(attribute.Bool(attrs.AttrOK, ok))

	return ok
}

// DoWithReadonly implements Map.DoWithReadonly with tracing.
func (mw *OTelTracingMiddleware[K, V]) DoWithReadonly(key K, read func(value V), onSuccess func()) bool {
	span := mw.startSpan("bucketmap.DoWithReadonly", mw.keyAttrs(key)...)
	defer span.End()

	ok := mw.next.DoWithReadonly(key, read, onSuccess)
	span.SetAttributes(attribute.Bool(attrs.AttrOK, ok))

	return ok
}

// Remove implements Map.Remove with tracing.
func (mw *OTelTracingMiddleware[K, V]) Remove(key K, onSuccess func()) bool {
	span := mw.startSpan("bucketmap.Remove", mw.keyAttrs(key)...)
	defer span.End()

	ok := mw.next.Remove(key, onSuccess)
	span.SetAttributes(attribute.Bool(attrs.AttrOK, ok))

	return ok
}

// DoAllReadonly implements Map.DoAllReadonly with tracing.
func (mw *OTelTracingMiddleware[K, V]) DoAllReadonly(visit func(key K, value V), onDone func()) {
	span := mw.startSpan("bucketmap.DoAllReadonly")
	defer span.End()

	visited := 0

	mw.next.DoAllReadonly(func(key K, value V) {
		visited++

		if visit != nil {
			visit(key, value)
		}
	}, onDone)

	span.SetAttributes(attribute.Int(attrs.AttrEntriesCount, visited))
}

func (mw *OTelTracingMiddleware[K, V]) keyAttrs(key K) []attribute.KeyValue {
	if !mw.recordKeys {
		return nil
	}

	return []attribute.KeyValue{attribute.String(attrs.AttrKey, fmt.Sprint(key))}
}

// startSpan starts a span with common and provided attributes.
func (mw *OTelTracingMiddleware[K, V]) startSpan(name string, attributes ...attribute.KeyValue) trace.Span {
	_, span := mw.tracer.Start(mw.ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	if len(mw.commonAttrs) > 0 {
		span.SetAttributes(mw.commonAttrs...)
	}

	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	return span
}
