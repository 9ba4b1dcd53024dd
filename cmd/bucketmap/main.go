// Command bucketmap hosts a bucket map behind the management HTTP server, and benchmarks
// the map under a concurrent two-phase-locking workload.
package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"

	"github.com/hyp3rd/bucketmap/internal/config"
)

// Version is set via ldflags.
var Version = "dev" //nolint:gochecknoglobals

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "bucketmap",
		Usage:   "concurrent bucketed key/value map",
		Version: Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			benchCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML configuration file",
			EnvVars: []string{"BUCKETMAP_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "trace, debug, info, warn or error",
		},
	}
}

// mapFlags are shared by every command building a map.
func mapFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "buckets",
			Usage: "number of buckets",
		},
		&cli.StringFlag{
			Name:  "hash",
			Usage: "hash algorithm: xxhash, fnv or murmur3",
		},
	}
}

// flagKeys maps command-line flags to the configuration keys they override.
//
//nolint:gochecknoglobals
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"buckets":         "map.buckets",
	"hash":            "map.hash",
	"mgmt":            "management.enabled",
	"mgmt-addr":       "management.addr",
	"snapshot-store":  "snapshot.store",
	"snapshot-path":   "snapshot.path",
	"snapshot-format": "snapshot.format",
	"redis-addr":      "snapshot.redis.addr",
}

// loadConfig layers defaults, the config file, the environment and explicitly set flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	opts := []config.Option{config.WithConfigFile(c.String("config"))}

	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			opts = append(opts, config.WithOverride(key, c.Value(flag)))
		}
	}

	return config.NewLoader(opts...).Load()
}

func newLogger(level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "bucketmap",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}
