package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/bucketmap"
	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/libs/serializer"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
)

func fill(m bucketmap.Map[string, int], n int) {
	for i := range n {
		m.Insert("key-"+strconv.Itoa(i), i, nil)
	}
}

func TestSaveRestore_RoundTrip(t *testing.T) {
	formats := []string{constants.SerializerJSON, constants.SerializerMsgpack, constants.SerializerCBOR}

	for _, format := range formats {
		t.Run(format, func(t *testing.T) {
			ctx := context.Background()

			store, err := NewFileStore(t.TempDir())
			assert.Nil(t, err)

			ser, err := serializer.New(format)
			assert.Nil(t, err)

			src := bucketmap.MustNew[string, int](8)
			fill(src, 100)

			saved, err := Save[string, int](ctx, src, ser, store, "snap")
			assert.Nil(t, err)
			assert.Equal(t, 100, saved)

			dst := bucketmap.MustNew[string, int](3)
			dst.Insert("key-0", -1, nil)
			dst.Insert("extra", 7, nil)

			restored, err := Restore[string, int](ctx, dst, ser, store, "snap")
			assert.Nil(t, err)
			assert.Equal(t, 100, restored)

			// restored entries overwrite, unrelated keys survive
			assert.Equal(t, 101, dst.Len())

			for i := range 100 {
				ok := dst.DoWithReadonly("key-"+strconv.Itoa(i), func(v int) {
					if v != i {
						t.Errorf("key-%d: got %d, want %d", i, v, i)
					}
				}, nil)
				assert.True(t, ok)
			}
		})
	}
}

func TestSave_EmptyMap(t *testing.T) {
	ctx := context.Background()

	store, err := NewFileStore(t.TempDir())
	assert.Nil(t, err)

	ser, err := serializer.New(constants.SerializerJSON)
	assert.Nil(t, err)

	saved, err := Save[string, int](ctx, bucketmap.MustNew[string, int](4), ser, store, "empty")
	assert.Nil(t, err)
	assert.Equal(t, 0, saved)

	data, err := store.Read(ctx, "empty")
	assert.Nil(t, err)
	assert.Equal(t, "[]", string(data))

	restored, err := Restore[string, int](ctx, bucketmap.MustNew[string, int](4), ser, store, "empty")
	assert.Nil(t, err)
	assert.Equal(t, 0, restored)
}

func TestRestore_Missing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	assert.Nil(t, err)

	ser, err := serializer.New(constants.SerializerMsgpack)
	assert.Nil(t, err)

	_, err = Restore[string, int](context.Background(), bucketmap.MustNew[string, int](4), ser, store, "nope")
	assert.True(t, errors.Is(err, sentinel.ErrSnapshotNotFound))
}

func TestRestore_Corrupt(t *testing.T) {
	ctx := context.Background()

	store, err := NewFileStore(t.TempDir())
	assert.Nil(t, err)

	assert.Nil(t, store.Write(ctx, "bad", []byte("{not json")))

	ser, err := serializer.New(constants.SerializerJSON)
	assert.Nil(t, err)

	m := bucketmap.MustNew[string, int](4)

	_, err = Restore[string, int](ctx, m, ser, store, "bad")
	assert.True(t, err != nil)
	assert.Equal(t, 0, m.Len())
}

func TestSave_EmptyName(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	assert.Nil(t, err)

	ser, err := serializer.New(constants.SerializerJSON)
	assert.Nil(t, err)

	_, err = Save[string, int](context.Background(), bucketmap.MustNew[string, int](4), ser, store, "")
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))
}

func TestSave_CanceledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	assert.Nil(t, err)

	ser, err := serializer.New(constants.SerializerJSON)
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Save[string, int](ctx, bucketmap.MustNew[string, int](4), ser, store, "snap")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFileStore_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")

	store, err := NewFileStore(dir)
	assert.Nil(t, err)
	assert.Equal(t, dir, store.Dir())

	assert.Nil(t, store.Write(ctx, "a", []byte("first")))
	assert.Nil(t, store.Write(ctx, "a", []byte("second")))

	data, err := store.Read(ctx, "a")
	assert.Nil(t, err)
	assert.Equal(t, "second", string(data))

	// no temporary files are left behind
	files, err := os.ReadDir(dir)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(files))

	assert.Nil(t, store.Delete(ctx, "a"))
	assert.True(t, errors.Is(store.Delete(ctx, "a"), sentinel.ErrSnapshotNotFound))

	_, err = store.Read(ctx, "a")
	assert.True(t, errors.Is(err, sentinel.ErrSnapshotNotFound))
}

func TestFileStore_RejectsPaths(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	assert.Nil(t, err)

	ctx := context.Background()

	for _, name := range []string{"../escape", "nested/name", ".", ".."} {
		assert.True(t, store.Write(ctx, name, []byte("x")) != nil)

		_, err = store.Read(ctx, name)
		assert.True(t, err != nil)
		assert.False(t, errors.Is(err, sentinel.ErrSnapshotNotFound))

		err = store.Delete(ctx, name)
		assert.True(t, err != nil)
		assert.False(t, errors.Is(err, sentinel.ErrSnapshotNotFound))
	}

	// the store directory and its parent survive a rejected delete
	_, err = os.Stat(store.Dir())
	assert.Nil(t, err)

	_, err = os.Stat(filepath.Dir(store.Dir()))
	assert.Nil(t, err)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(constants.FileStore, t.TempDir())
	assert.Nil(t, err)
	assert.True(t, store != nil)

	_, err = NewStore(constants.RedisStore, "")
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))

	_, err = NewStore("s3", "")
	assert.True(t, errors.Is(err, sentinel.ErrStoreNotFound))

	_, err = NewStore("", "")
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))
}

func TestNewRedisStoreWithClient_Nil(t *testing.T) {
	_, err := NewRedisStoreWithClient(nil)
	assert.True(t, errors.Is(err, sentinel.ErrNilClient))
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("BUCKETMAP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BUCKETMAP_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()

	store, err := NewRedisStore(WithRedisAddr(addr))
	assert.Nil(t, err)

	defer func() { _ = store.Close() }()

	ser, err := serializer.New(constants.SerializerMsgpack)
	assert.Nil(t, err)

	name := "test-" + strconv.FormatInt(int64(os.Getpid()), 10)

	src := bucketmap.MustNew[string, int](4)
	fill(src, 10)

	saved, err := Save[string, int](ctx, src, ser, store, name)
	assert.Nil(t, err)
	assert.Equal(t, 10, saved)

	dst := bucketmap.MustNew[string, int](4)

	restored, err := Restore[string, int](ctx, dst, ser, store, name)
	assert.Nil(t, err)
	assert.Equal(t, 10, restored)
	assert.Equal(t, 10, dst.Len())

	assert.Nil(t, store.Delete(ctx, name))

	_, err = store.Read(ctx, name)
	assert.True(t, errors.Is(err, sentinel.ErrSnapshotNotFound))
}
