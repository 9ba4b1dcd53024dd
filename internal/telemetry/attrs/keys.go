// Package attrs provides reusable OpenTelemetry attribute key constants
// to avoid duplication across middlewares.
package attrs

const (
	// AttrMethod names the map operation being measured.
	AttrMethod = "method"
	// AttrOK reports the boolean outcome of a keyed operation: inserted, found or removed.
	AttrOK = "ok"
	// AttrKey carries the formatted key. Only set when key recording is enabled.
	AttrKey = "key"
	// AttrEntriesCount is the number of entries visited by a whole-map traversal.
	AttrEntriesCount = "entries.count"
	// AttrMapID identifies the map instance a span or measurement belongs to.
	AttrMapID = "map.id"
)
