package config

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/libs/serializer"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
	"github.com/hyp3rd/bucketmap/pkg/hashing"
)

// Config is the root configuration of the bucketmap process.
type Config struct {
	Map        MapSection        `koanf:"map"`
	Management ManagementSection `koanf:"management"`
	Snapshot   SnapshotSection   `koanf:"snapshot"`
	Log        LogSection        `koanf:"log"`
}

// MapSection configures the served map.
type MapSection struct {
	Buckets int    `koanf:"buckets"`
	Hash    string `koanf:"hash"`
}

// ManagementSection configures the management HTTP server.
type ManagementSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// SnapshotSection configures snapshot persistence. An empty Store disables it.
type SnapshotSection struct {
	Store  string       `koanf:"store"`
	Path   string       `koanf:"path"`
	Format string       `koanf:"format"`
	Redis  RedisSection `koanf:"redis"`
}

// RedisSection configures the redis snapshot store.
type RedisSection struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Key      string `koanf:"key"`
}

// LogSection configures logging.
type LogSection struct {
	Level string `koanf:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Map: MapSection{
			Buckets: constants.DefaultBucketCount,
			Hash:    constants.DefaultHashAlgorithm,
		},
		Management: ManagementSection{
			Addr: constants.DefaultManagementAddr,
		},
		Snapshot: SnapshotSection{
			Path:   constants.DefaultSnapshotPath,
			Format: constants.DefaultSnapshotFormat,
			Redis: RedisSection{
				Key: constants.DefaultSnapshotName,
			},
		},
		Log: LogSection{
			Level: constants.DefaultLogLevel,
		},
	}
}

func (c *Config) toMap() map[string]any {
	return map[string]any{
		"map": map[string]any{
			"buckets": c.Map.Buckets,
			"hash":    c.Map.Hash,
		},
		"management": map[string]any{
			"enabled": c.Management.Enabled,
			"addr":    c.Management.Addr,
		},
		"snapshot": map[string]any{
			"store":  c.Snapshot.Store,
			"path":   c.Snapshot.Path,
			"format": c.Snapshot.Format,
			"redis": map[string]any{
				"addr":     c.Snapshot.Redis.Addr,
				"password": c.Snapshot.Redis.Password,
				"db":       c.Snapshot.Redis.DB,
				"key":      c.Snapshot.Redis.Key,
			},
		},
		"log": map[string]any{
			"level": c.Log.Level,
		},
	}
}

// Validate reports the first invalid setting, wrapping sentinel.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Map.Buckets <= 0 {
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "map.buckets must be positive, got %d", c.Map.Buckets)
	}

	if !slices.Contains(hashing.NewRegistry().Names(), c.Map.Hash) {
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "map.hash: unknown algorithm %q", c.Map.Hash)
	}

	if c.Management.Enabled && strings.TrimSpace(c.Management.Addr) == "" {
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "management.addr is required when management is enabled")
	}

	err := c.validateSnapshot()
	if err != nil {
		return err
	}

	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "log.level: unknown level %q", c.Log.Level)
	}

	return nil
}

func (c *Config) validateSnapshot() error {
	switch c.Snapshot.Store {
	case "":
		return nil
	case constants.FileStore:
		if c.Snapshot.Path == "" || filepath.Base(c.Snapshot.Path) == "." {
			return ewrap.Wrapf(sentinel.ErrInvalidConfig, "snapshot.path is required for the file store")
		}
	case constants.RedisStore:
		if strings.TrimSpace(c.Snapshot.Redis.Addr) == "" {
			return ewrap.Wrapf(sentinel.ErrInvalidConfig, "snapshot.redis.addr is required for the redis store")
		}

		if c.Snapshot.Redis.Key == "" {
			return ewrap.Wrapf(sentinel.ErrInvalidConfig, "snapshot.redis.key is required for the redis store")
		}
	default:
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "snapshot.store: unknown store %q", c.Snapshot.Store)
	}

	if !serializer.NewSerializerRegistry().Has(c.Snapshot.Format) {
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "snapshot.format: unknown format %q", c.Snapshot.Format)
	}

	return nil
}

// SnapshotEnabled reports whether a snapshot store is configured.
func (c *Config) SnapshotEnabled() bool {
	return c.Snapshot.Store != ""
}

// SnapshotLocation returns the directory and name the configured store keeps the snapshot
// under. The file store splits Path; the redis store uses Key as the name.
func (c *Config) SnapshotLocation() (dir, name string) {
	if c.Snapshot.Store == constants.RedisStore {
		return "", c.Snapshot.Redis.Key
	}

	return filepath.Dir(c.Snapshot.Path), filepath.Base(c.Snapshot.Path)
}
