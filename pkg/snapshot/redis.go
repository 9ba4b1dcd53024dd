package snapshot

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
)

// RedisOption is a function type that can be used to configure the redis client of a RedisStore.
type RedisOption func(*redis.Options)

// ApplyRedisOptions applies the given options to the given redis options.
func ApplyRedisOptions(opt *redis.Options, options ...RedisOption) {
	for _, option := range options {
		option(opt)
	}
}

// WithRedisAddr sets the `Addr` field of the `redis.Options` struct.
func WithRedisAddr(addr string) RedisOption {
	return func(opt *redis.Options) {
		opt.Addr = addr
	}
}

// WithRedisUsername sets the `Username` field of the `redis.Options` struct.
func WithRedisUsername(username string) RedisOption {
	return func(opt *redis.Options) {
		opt.Username = username
	}
}

// WithRedisPassword sets the `Password` field of the `redis.Options` struct.
func WithRedisPassword(password string) RedisOption {
	return func(opt *redis.Options) {
		opt.Password = password
	}
}

// WithRedisDB sets the `DB` field of the `redis.Options` struct.
func WithRedisDB(db int) RedisOption {
	return func(opt *redis.Options) {
		opt.DB = db
	}
}

// RedisStore keeps snapshots as plain Redis string values under constants.RedisKeyPrefix.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a redis client from the given options and wraps it in a RedisStore.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	opt := &redis.Options{
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{
				Timeout: constants.RedisDialTimeout,
			}

			return dialer.DialContext(ctx, network, addr)
		},
		MaxRetries:   constants.RedisClientMaxRetries,
		DialTimeout:  constants.RedisDialTimeout,
		ReadTimeout:  constants.RedisClientReadTimeout,
		WriteTimeout: constants.RedisClientWriteTimeout,
		PoolSize:     constants.RedisClientPoolSize,
		MinIdleConns: constants.RedisClientMinIdleConns,
		PoolTimeout:  constants.RedisClientPoolTimeout,
	}

	ApplyRedisOptions(opt, opts...)

	if strings.TrimSpace(opt.Addr) == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "redis address")
	}

	return NewRedisStoreWithClient(redis.NewClient(opt))
}

// NewRedisStoreWithClient wraps an existing client. The store takes ownership of it.
func NewRedisStoreWithClient(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, sentinel.ErrNilClient
	}

	return &RedisStore{client: client}, nil
}

func redisKey(name string) string {
	return constants.RedisKeyPrefix + name
}

// Write implements Store.
func (s *RedisStore) Write(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "snapshot name")
	}

	err := s.client.Set(ctx, redisKey(name), data, 0).Err()
	if err != nil {
		return ewrap.Wrap(err, "failed to write snapshot to redis")
	}

	return nil
}

// Read implements Store.
func (s *RedisStore) Read(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "snapshot name")
	}

	data, err := s.client.Get(ctx, redisKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ewrap.Wrap(sentinel.ErrSnapshotNotFound, name)
		}

		return nil, ewrap.Wrap(err, "failed to read snapshot from redis")
	}

	return data, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "snapshot name")
	}

	removed, err := s.client.Del(ctx, redisKey(name)).Result()
	if err != nil {
		return ewrap.Wrap(err, "failed to delete snapshot from redis")
	}

	if removed == 0 {
		return ewrap.Wrap(sentinel.ErrSnapshotNotFound, name)
	}

	return nil
}

// Close closes the underlying redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
