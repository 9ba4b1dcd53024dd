package snapshot

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Store persists encoded snapshots by name.
type Store interface {
	// Write replaces the snapshot stored under name.
	Write(ctx context.Context, name string, data []byte) error
	// Read returns the snapshot stored under name, or sentinel.ErrSnapshotNotFound.
	Read(ctx context.Context, name string) ([]byte, error)
	// Delete removes the snapshot stored under name, or returns sentinel.ErrSnapshotNotFound.
	Delete(ctx context.Context, name string) error
}

// NewStore builds the store named by kind ("file" or "redis"). dir is used by the file
// store, redisOptions by the redis store.
func NewStore(kind, dir string, redisOptions ...RedisOption) (Store, error) {
	switch kind {
	case constants.FileStore:
		return NewFileStore(dir)
	case constants.RedisStore:
		return NewRedisStore(redisOptions...)
	case "":
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "store kind")
	default:
		return nil, ewrap.Wrap(sentinel.ErrStoreNotFound, kind)
	}
}

// FileStore keeps one file per snapshot in a directory. Writes go to a temporary file that
// is renamed over the target, so a reader never sees a partial snapshot.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed. An empty dir means
// the working directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to create snapshot directory")
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the snapshots.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" {
		return "", ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "snapshot name")
	}

	if name == "." || name == ".." || name != filepath.Base(name) {
		return "", ewrap.Newf("invalid snapshot name %q", name)
	}

	return filepath.Join(s.dir, name), nil
}

// Write implements Store.
func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	target, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return ewrap.Wrap(err, "failed to create temporary snapshot")
	}

	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		return ewrap.Wrap(err, "failed to write temporary snapshot")
	}

	err = os.Chmod(tmp.Name(), filePerm)
	if err != nil {
		return ewrap.Wrap(err, "failed to set snapshot permissions")
	}

	err = os.Rename(tmp.Name(), target)
	if err != nil {
		return ewrap.Wrap(err, "failed to replace snapshot")
	}

	return nil
}

// Read implements Store.
func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	target, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target) //nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ewrap.Wrap(sentinel.ErrSnapshotNotFound, name)
		}

		return nil, ewrap.Wrap(err, "failed to read snapshot")
	}

	return data, nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	target, err := s.path(name)
	if err != nil {
		return err
	}

	err = os.Remove(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ewrap.Wrap(sentinel.ErrSnapshotNotFound, name)
		}

		return ewrap.Wrap(err, "failed to delete snapshot")
	}

	return nil
}
