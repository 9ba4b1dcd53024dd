package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hyp3rd/ewrap"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hyp3rd/bucketmap"
	"github.com/hyp3rd/bucketmap/internal/config"
	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/libs/serializer"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
	"github.com/hyp3rd/bucketmap/internal/telemetry/attrs"
	"github.com/hyp3rd/bucketmap/pkg/middleware"
	"github.com/hyp3rd/bucketmap/pkg/snapshot"
	"github.com/hyp3rd/bucketmap/pkg/stats"
)

const shutdownTimeout = 5 * time.Second

func serveCommand() *cli.Command {
	flags := append(mapFlags(),
		&cli.BoolFlag{
			Name:  "mgmt",
			Usage: "enable the management HTTP server",
		},
		&cli.StringFlag{
			Name:  "mgmt-addr",
			Usage: "management HTTP listen address",
		},
		&cli.StringFlag{
			Name:  "snapshot-store",
			Usage: "snapshot store: file or redis (empty disables snapshots)",
		},
		&cli.StringFlag{
			Name:  "snapshot-path",
			Usage: "snapshot file path for the file store",
		},
		&cli.StringFlag{
			Name:  "snapshot-format",
			Usage: "snapshot encoding: json, msgpack or cbor",
		},
		&cli.StringFlag{
			Name:  "redis-addr",
			Usage: "redis address for the redis store",
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "host a string map until SIGINT/SIGTERM, restoring and saving snapshots",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := newServer(ctx, cfg, newLogger(cfg.Log.Level))
			if err != nil {
				return err
			}

			err = srv.start(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()

			return srv.stop()
		},
	}
}

// server is the state of a running serve command.
type server struct {
	cfg       *config.Config
	logger    hclog.Logger
	inner     *bucketmap.ConcurrentHashMap[string, string]
	m         bucketmap.Map[string, string]
	collector stats.ICollector
	store     snapshot.Store
	ser       serializer.ISerializer
	name      string
	mgmt      *bucketmap.ManagementHTTPServer
}

func newServer(ctx context.Context, cfg *config.Config, logger hclog.Logger) (*server, error) {
	inner, err := bucketmap.New(cfg.Map.Buckets, bucketmap.WithHashAlgorithm[string, string](cfg.Map.Hash))
	if err != nil {
		return nil, err
	}

	collector, err := stats.NewCollector("default")
	if err != nil {
		return nil, err
	}

	var m bucketmap.Map[string, string] = inner

	m = middleware.NewStatsCollectorMiddleware(m, collector)
	m = middleware.NewLoggingMiddleware(m, logger.StandardLogger(&hclog.StandardLoggerOptions{
		ForceLevel: hclog.Trace,
	}))

	m, err = middleware.NewOTelMetricsMiddleware(ctx, m, otel.Meter("bucketmap"))
	if err != nil {
		return nil, err
	}

	m = middleware.NewOTelTracingMiddleware(ctx, m, otel.Tracer("bucketmap"),
		middleware.WithCommonAttributes(attribute.Int64(attrs.AttrMapID, int64(inner.ID()))), //nolint:gosec
	)

	srv := &server{
		cfg:       cfg,
		logger:    logger,
		inner:     inner,
		m:         m,
		collector: collector,
	}

	if cfg.SnapshotEnabled() {
		err = srv.openSnapshotStore()
		if err != nil {
			return nil, err
		}
	}

	if cfg.Management.Enabled {
		var opts []bucketmap.ManagementHTTPOption

		opts = append(opts, bucketmap.WithMgmtServeErrorHandler(func(err error) {
			logger.Error("management server stopped", "error", err)
		}))

		if srv.store != nil {
			opts = append(opts, bucketmap.WithMgmtSnapshot(srv.save))
		}

		srv.mgmt = bucketmap.NewManagementHTTPServer(cfg.Management.Addr, opts...)
	}

	return srv, nil
}

func (s *server) openSnapshotStore() error {
	dir, name := s.cfg.SnapshotLocation()

	var redisOptions []snapshot.RedisOption
	if s.cfg.Snapshot.Store == constants.RedisStore {
		redisOptions = append(redisOptions,
			snapshot.WithRedisAddr(s.cfg.Snapshot.Redis.Addr),
			snapshot.WithRedisPassword(s.cfg.Snapshot.Redis.Password),
			snapshot.WithRedisDB(s.cfg.Snapshot.Redis.DB),
		)
	}

	store, err := snapshot.NewStore(s.cfg.Snapshot.Store, dir, redisOptions...)
	if err != nil {
		return err
	}

	ser, err := serializer.New(s.cfg.Snapshot.Format)
	if err != nil {
		return err
	}

	s.store, s.ser, s.name = store, ser, name

	return nil
}

// start restores the snapshot, if any, and starts the management server.
func (s *server) start(ctx context.Context) error {
	if s.store != nil {
		restored, err := snapshot.Restore(ctx, s.m, s.ser, s.store, s.name)

		switch {
		case errors.Is(err, sentinel.ErrSnapshotNotFound):
			s.logger.Info("no snapshot to restore", "store", s.cfg.Snapshot.Store, "name", s.name)
		case err != nil:
			return ewrap.Wrap(err, "restore snapshot")
		default:
			s.logger.Info("snapshot restored", "entries", restored)
		}
	}

	if s.mgmt != nil {
		err := s.mgmt.Start(ctx, s.inner, s.collector)
		if err != nil {
			return err
		}

		s.logger.Info("management server listening", "addr", s.mgmt.Address())
	}

	s.logger.Info("serving", "buckets", s.inner.Buckets(), "hash", s.inner.HashAlgorithm(), "map_id", s.inner.ID())

	return nil
}

// save writes the current contents to the snapshot store.
func (s *server) save(ctx context.Context) (int, error) {
	saved, err := snapshot.Save(ctx, s.m, s.ser, s.store, s.name)
	if err != nil {
		return 0, err
	}

	s.logger.Info("snapshot saved", "entries", saved)

	return saved, nil
}

// stop shuts the management server down and saves a final snapshot.
func (s *server) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	eg := ewrap.NewErrorGroup()

	if s.mgmt != nil {
		err := s.mgmt.Shutdown(ctx)
		if err != nil {
			eg.Add(ewrap.Wrap(err, "management shutdown"))
		}
	}

	if s.store != nil {
		_, err := s.save(ctx)
		if err != nil {
			eg.Add(ewrap.Wrap(err, "save snapshot"))
		}

		if closer, ok := s.store.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	return eg.ErrorOrNil()
}
