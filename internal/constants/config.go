// Package constants defines default configuration values for the bucketmap module:
// bucket counts, hash algorithm names, snapshot formats and store kinds.
package constants

const (
	// DefaultBucketCount is the number of buckets used when the configuration does not set one.
	// A power of two keeps the modulo routing cheap and distributes well with the default hash.
	DefaultBucketCount = 64

	// HashXXHash is the name of the xxhash algorithm, the default hash router.
	HashXXHash = "xxhash"
	// HashFNV is the name of the inline FNV-1a 64 algorithm.
	HashFNV = "fnv"
	// HashMurmur3 is the name of the murmur3 64 algorithm.
	HashMurmur3 = "murmur3"
	// DefaultHashAlgorithm is the hash algorithm used when none is configured.
	DefaultHashAlgorithm = HashXXHash

	// SerializerJSON is the name of the JSON serializer.
	SerializerJSON = "json"
	// SerializerMsgpack is the name of the msgpack serializer.
	SerializerMsgpack = "msgpack"
	// SerializerCBOR is the name of the CBOR serializer.
	SerializerCBOR = "cbor"
	// DefaultSnapshotFormat is the serializer used for snapshots when none is configured.
	DefaultSnapshotFormat = SerializerMsgpack

	// FileStore is the snapshot store kind that writes to the local filesystem.
	FileStore = "file"
	// RedisStore is the snapshot store kind that writes to a Redis key.
	RedisStore = "redis"
	// DefaultSnapshotPath is the file used by the file store when none is configured.
	DefaultSnapshotPath = "bucketmap.snap"
	// DefaultSnapshotName is the snapshot name used by the CLI.
	DefaultSnapshotName = "bucketmap"

	// DefaultManagementAddr is the listen address of the management HTTP server.
	DefaultManagementAddr = "127.0.0.1:8089"

	// DefaultLogLevel is the default log level of the CLI.
	DefaultLogLevel = "info"

	// EnvPrefix is the environment variable prefix read by the configuration loader.
	EnvPrefix = "BUCKETMAP_"
)
