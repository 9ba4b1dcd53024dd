// Package snapshot dumps a bucket map to a Store and restores it back.
//
// A snapshot is taken with DoAllReadonly, so it reflects one point in time of the whole map
// even while other goroutines keep writing. Restore upserts every entry, leaving keys that
// are not part of the snapshot untouched.
package snapshot

import (
	"context"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/bucketmap"
	"github.com/hyp3rd/bucketmap/internal/libs/serializer"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
)

// Save encodes every entry of m with ser and writes the result to store under name.
// It returns the number of entries written.
func Save[K comparable, V any](
	ctx context.Context,
	m bucketmap.Map[K, V],
	ser serializer.ISerializer,
	store Store,
	name string,
) (int, error) {
	if name == "" {
		return 0, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "snapshot name")
	}

	err := ctx.Err()
	if err != nil {
		return 0, err
	}

	entries := bucketmap.Collect(m)
	if entries == nil {
		entries = []bucketmap.Entry[K, V]{}
	}

	data, err := ser.Marshal(entries)
	if err != nil {
		return 0, ewrap.Wrap(err, "failed to encode snapshot")
	}

	err = store.Write(ctx, name, data)
	if err != nil {
		return 0, ewrap.Wrap(err, "failed to write snapshot")
	}

	return len(entries), nil
}

// Restore reads the snapshot stored under name, decodes it with ser and upserts every entry
// into m. It returns the number of entries restored.
func Restore[K comparable, V any](
	ctx context.Context,
	m bucketmap.Map[K, V],
	ser serializer.ISerializer,
	store Store,
	name string,
) (int, error) {
	if name == "" {
		return 0, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "snapshot name")
	}

	data, err := store.Read(ctx, name)
	if err != nil {
		return 0, err
	}

	var entries []bucketmap.Entry[K, V]

	err = ser.Unmarshal(data, &entries)
	if err != nil {
		return 0, ewrap.Wrap(err, "failed to decode snapshot")
	}

	for i, entry := range entries {
		// entries already applied stay applied
		if i%1024 == 0 {
			err = ctx.Err()
			if err != nil {
				return i, err
			}
		}

		m.Upsert(entry.Key, entry.Value, nil, nil)
	}

	return len(entries), nil
}
