package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hyp3rd/bucketmap"
	"github.com/hyp3rd/bucketmap/internal/telemetry/attrs"
)

// OTelMetricsMiddleware emits OpenTelemetry metrics for map methods.
type OTelMetricsMiddleware[K comparable, V any] struct {
	next bucketmap.Map[K, V]
	// the capability interface carries no context; measurements use this one
	ctx context.Context //nolint:containedctx

	calls     metric.Int64Counter
	durations metric.Float64Histogram
}

// NewOTelMetricsMiddleware constructs a metrics middleware using the provided meter.
func NewOTelMetricsMiddleware[K comparable, V any](
	ctx context.Context,
	next bucketmap.Map[K, V],
	meter metric.Meter,
) (bucketmap.Map[K, V], error) {
	calls, err := meter.Int64Counter("bucketmap.calls")
	if err != nil {
		return nil, ewrap.Wrap(err, "create counter")
	}

	durations, err := meter.Float64Histogram("bucketmap.duration.ms")
	if err != nil {
		return nil, ewrap.Wrap(err, "create histogram")
	}

	return &OTelMetricsMiddleware[K, V]{next: next, ctx: ctx, calls: calls, durations: durations}, nil
}

// Clear implements Map.Clear with metrics.
func (mw *OTelMetricsMiddleware[K, V]) Clear() {
	start := time.Now()
	mw.next.Clear()
	mw.rec("Clear", start)
}

// Insert implements Map.Insert with metrics.
func (mw *OTelMetricsMiddleware[K, V]) Insert(key K, value V, onSuccess func()) bool {
	start := time.Now()
	ok := mw.next.Insert(key, value, onSuccess)
	mw.rec("Insert", start, attribute.Bool(attrs.AttrOK, ok))

	return ok
}

// Upsert implements Map.Upsert with metrics.
func (mw *OTelMetricsMiddleware[K, V]) Upsert(key K, value V, onInsert, onUpdate func()) bool {
	start := time.Now()
	inserted := mw.next.Upsert(key, value, onInsert, onUpdate)
	mw.rec("Upsert", start, attribute.Bool(attrs.AttrOK, inserted))

	return inserted
}

// DoWith implements Map.DoWith with metrics.
func (mw *OTelMetricsMiddleware[K, V]) DoWith(key K, mutate func(value *V), onSuccess func()) bool {
	start := time.Now()
	ok := mw.next.DoWith(key, mutate, onSuccess)
	mw.rec("DoWith", start, attribute.Bool(attrs.AttrOK, ok))

	return ok
}

// DoWithReadonly implements Map.DoWithReadonly with metrics.
func (mw *OTelMetricsMiddleware[K, V]) DoWithReadonly(key K, read func(value V), onSuccess func()) bool {
	start := time.Now()
	ok := mw.next.DoWithReadonly(key, read, onSuccess)
	mw.rec("DoWithReadonly", start, attribute.Bool(attrs.AttrOK, ok))

	return ok
}

// Remove implements Map.Remove with metrics.
func (mw *OTelMetricsMiddleware[K, V]) Remove(key K, onSuccess func()) bool {
	start := time.Now()
	ok := mw.next.Remove(key, onSuccess)
	mw.rec("Remove", start, attribute.Bool(attrs.AttrOK, ok))

	return ok
}

// DoAllReadonly implements Map.DoAllReadonly with metrics.
func (mw *OTelMetricsMiddleware[K, V]) DoAllReadonly(visit func(key K, value V), onDone func()) {
	start := time.Now()
	mw.next.DoAllReadonly(visit, onDone)
	mw.rec("DoAllReadonly", start)
}

// rec records call count and duration with attributes.
func (mw *OTelMetricsMiddleware[K, V]) rec(method string, start time.Time, attributes ...attribute.KeyValue) {
	base := []attribute.KeyValue{attribute.String(attrs.AttrMethod, method)}
	if len(attributes) > 0 {
		base = append(base, attributes...)
	}

	mw.calls.Add(mw.ctx, 1, metric.WithAttributes(base...))
	mw.durations.Record(mw.ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(base...))
}
