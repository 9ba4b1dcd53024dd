// Package sentinel provides standardized error definitions for the bucketmap module.
// Map operations themselves report plain boolean outcomes; the errors below cover
// construction, configuration, serialization, snapshot storage and the management server.
//
// All errors are created using the ewrap package so callers can attach context with
// ewrap.Wrap and still match the sentinel with errors.Is.
package sentinel

import (
	"github.com/hyp3rd/ewrap"
)

var (
	// ErrInvalidBucketCount is returned when a map is constructed with zero or fewer buckets.
	ErrInvalidBucketCount = ewrap.New("bucket count must be greater than zero")

	// ErrHashAlgorithmNotFound is returned when an unknown hash algorithm is requested.
	ErrHashAlgorithmNotFound = ewrap.New("hash algorithm not found")

	// ErrParamCannotBeEmpty is returned when a parameter cannot be empty.
	ErrParamCannotBeEmpty = ewrap.New("param cannot be empty")

	// ErrSerializerNotFound is returned when a serializer is not found.
	ErrSerializerNotFound = ewrap.New("serializer not found")

	// ErrStatsCollectorNotFound is returned when a stats collector is not found.
	ErrStatsCollectorNotFound = ewrap.New("stats collector not found")

	// ErrSnapshotNotFound is returned when a snapshot does not exist in the store.
	ErrSnapshotNotFound = ewrap.New("snapshot not found")

	// ErrStoreNotFound is returned when an unknown snapshot store kind is requested.
	ErrStoreNotFound = ewrap.New("snapshot store not found")

	// ErrNilClient is returned when a nil client is passed to a store.
	ErrNilClient = ewrap.New("nil client")

	// ErrInvalidConfig is returned when the loaded configuration fails validation.
	ErrInvalidConfig = ewrap.New("invalid configuration")

	// ErrMgmtHTTPShutdownTimeout is returned when the management HTTP server fails to shutdown before context deadline.
	ErrMgmtHTTPShutdownTimeout = ewrap.New("management http shutdown timeout")
)
