// Package config loads the bucketmap process configuration.
//
// Sources are layered with koanf, later ones overriding earlier ones:
// built-in defaults, a YAML file, BUCKETMAP_* environment variables, then explicit
// overrides (command-line flags).
package config

import (
	"strings"

	"github.com/hyp3rd/ewrap"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hyp3rd/bucketmap/internal/constants"
)

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path. An empty path skips the file.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverride sets a dotted key (e.g. "map.buckets") that wins over every other source.
func WithOverride(key string, value any) Option {
	return func(l *Loader) {
		l.overrides[key] = value
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: constants.EnvPrefix,
		overrides: make(map[string]any),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load layers every source and returns the validated result.
func (l *Loader) Load() (*Config, error) {
	err := l.LoadMap(Default().toMap())
	if err != nil {
		return nil, err
	}

	err = l.LoadFile(l.filePath)
	if err != nil {
		return nil, err
	}

	err = l.LoadEnv()
	if err != nil {
		return nil, err
	}

	for key, value := range l.overrides {
		err = l.LoadMap(nest(key, value))
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}

	err = l.k.Unmarshal("", cfg)
	if err != nil {
		return nil, ewrap.Wrap(err, "unmarshal config")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	err := l.k.Load(file.Provider(path), yaml.Parser())
	if err != nil {
		return ewrap.Wrapf(err, "load config file %s", path)
	}

	return nil
}

// LoadEnv loads configuration from environment variables: BUCKETMAP_SNAPSHOT_REDIS_ADDR
// maps to snapshot.redis.addr.
func (l *Loader) LoadEnv() error {
	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)

		return strings.ReplaceAll(s, "_", ".")
	}

	err := l.k.Load(env.Provider(l.envPrefix, ".", envTransformer), nil)
	if err != nil {
		return ewrap.Wrap(err, "load env")
	}

	return nil
}

// LoadMap loads configuration from a nested map.
func (l *Loader) LoadMap(data map[string]any) error {
	err := l.k.Load(mapProvider(data), nil)
	if err != nil {
		return ewrap.Wrap(err, "load map")
	}

	return nil
}

// All returns all configuration as a flat map of dotted keys.
func (l *Loader) All() map[string]any {
	return l.k.All()
}

// nest turns a dotted key into nested maps: nest("a.b", 1) is {"a": {"b": 1}}.
func nest(key string, value any) map[string]any {
	parts := strings.Split(key, ".")

	out := map[string]any{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		out = map[string]any{parts[i]: out}
	}

	return out
}

// mapProvider is a koanf provider that loads configuration from a map.
type mapProvider map[string]any

// ReadBytes is not supported; koanf falls back to Read.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ewrap.New("map provider does not support ReadBytes")
}

// Read returns the configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
