// Package middleware provides decorators around bucketmap.Map. Each middleware implements
// the same interface and forwards to the next map, so they can be stacked freely.
//
// Callbacks are forwarded untouched and therefore still run under the innermost map's
// bucket lock. Anything a middleware records about a call happens after the inner call
// returns, outside the lock.
package middleware

import (
	"time"

	"github.com/hyp3rd/bucketmap"
)

// Logger describes a logging interface allowing to implement different external, or custom logger.
// *log.Logger and hclog's StandardLogger satisfy it.
type Logger interface {
	Printf(format string, v ...any)
}

// LoggingMiddleware logs every call, its outcome and the time it took.
type LoggingMiddleware[K comparable, V any] struct {
	next   bucketmap.Map[K, V]
	logger Logger
}

// NewLoggingMiddleware returns a new LoggingMiddleware.
func NewLoggingMiddleware[K comparable, V any](next bucketmap.Map[K, V], logger Logger) bucketmap.Map[K, V] {
	return &LoggingMiddleware[K, V]{next: next, logger: logger}
}

// Clear logs the time it takes to execute the next middleware.
func (mw *LoggingMiddleware[K, V]) Clear() {
	defer func(begin time.Time) {
		mw.logger.Printf("method Clear took: %s", time.Since(begin))
	}(time.Now())

	mw.next.Clear()
}

// Insert logs the time it takes to execute the next middleware.
func (mw *LoggingMiddleware[K, V]) Insert(key K, value V, onSuccess func()) (ok bool) {
	defer func(begin time.Time) {
		mw.logger.Printf("method Insert key: %v inserted: %t took: %s", key, ok, time.Since(begin))
	}(time.Now())

	return mw.next.Insert(key, value, onSuccess)
}

// Upsert logs the time it takes to execute the next middleware.
func (mw *LoggingMiddleware[K, V]) Upsert(key K, value V, onInsert, onUpdate func()) (inserted bool) {
	defer func(begin time.Time) {
		mw.logger.Printf("method Upsert key: %v inserted: %t took: %s", key, inserted, time.Since(begin))
	}(time.Now())

	return mw.next.Upsert(key, value, onInsert, onUpdate)
}

// DoWith logs the time it takes to execute the next middleware.
func (mw *LoggingMiddleware[K, V]) DoWith(key K, mutate func(value *V), onSuccess func()) (ok bool) {
	defer func(begin time.Time) {
		mw.logger.Printf("method DoWith key: %v found: %t took: %s", key, ok, time.Since(begin))
	}(time.Now())

	return mw.next.DoWith(key, mutate, onSuccess)
}

// DoWithReadonly logs the time it takes to execute the next middleware.
func (mw *LoggingMiddleware[K, V]) DoWithReadonly(key K, read func(value V), onSuccess func()) (ok bool) {
	defer func(begin time.Time) {
		mw.logger.Printf("method DoWithReadonly key: %v found: %t took: %s", key, ok, time.Since(begin))
	}(time.Now())

	return mw.next.DoWithReadonly(key, read, onSuccess)
}

// Remove logs the time it takes to execute the next middleware.
func (mw *LoggingMiddleware[K, V]) Remove(key K, onSuccess func()) (ok bool) {
	defer func(begin time.Time) {
		mw.logger.Printf("method Remove key: %v removed: %t took: %s", key, ok, time.Since(begin))
	}(time.Now())

	return mw.next.Remove(key, onSuccess)
}

// DoAllReadonly logs the time it takes to execute the next middleware.
func (mw *LoggingMiddleware[K, V]) DoAllReadonly(visit func(key K, value V), onDone func()) {
	defer func(begin time.Time) {
		mw.logger.Printf("method DoAllReadonly took: %s", time.Since(begin))
	}(time.Now())

	mw.next.DoAllReadonly(visit, onDone)
}
