package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hyp3rd/ewrap"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hyp3rd/bucketmap"
	"github.com/hyp3rd/bucketmap/pkg/middleware"
	"github.com/hyp3rd/bucketmap/pkg/stats"
)

const (
	initialBalance = 100
	ctxCheckEvery  = 256
)

func benchCommand() *cli.Command {
	flags := append(mapFlags(),
		&cli.IntFlag{Name: "workers", Value: 8, Usage: "concurrent workers"},
		&cli.IntFlag{Name: "ops", Value: 100_000, Usage: "operations per worker"},
		&cli.IntFlag{Name: "keys", Value: 4096, Usage: "size of the random key space"},
		&cli.IntFlag{Name: "accounts", Value: 64, Usage: "accounts taking part in transfers"},
		&cli.Uint64Flag{Name: "seed", Usage: "random seed (0 picks one)"},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "run a concurrent workload and verify transfers between two maps conserve the total",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			opts := benchOptions{
				workers:  c.Int("workers"),
				ops:      c.Int("ops"),
				keys:     c.Int("keys"),
				accounts: c.Int("accounts"),
				buckets:  cfg.Map.Buckets,
				hash:     cfg.Map.Hash,
				seed:     c.Uint64("seed"),
			}

			report, err := runBench(c.Context, opts, newLogger(cfg.Log.Level))
			if err != nil {
				return err
			}

			report.print(c.App.Writer)

			return nil
		},
	}
}

type benchOptions struct {
	workers  int
	ops      int
	keys     int
	accounts int
	buckets  int
	hash     string
	seed     uint64
}

func (o benchOptions) validate() error {
	if o.workers <= 0 || o.ops <= 0 || o.keys <= 0 || o.accounts <= 0 {
		return ewrap.Newf("bench: workers, ops, keys and accounts must be positive")
	}

	return nil
}

type benchReport struct {
	ops       int64
	transfers int64
	elapsed   time.Duration
	total     int
	expected  int
	loads     []int
	stats     stats.Stats
}

func (r benchReport) print(w io.Writer) {
	secs := r.elapsed.Seconds()
	if secs == 0 {
		secs = 1
	}

	report := bucketmap.NewBucketReport(r.loads)

	fmt.Fprintf(w, "ops: %d (%d transfers) in %s, %.0f ops/s\n", r.ops, r.transfers, r.elapsed, float64(r.ops)/secs)
	fmt.Fprintf(w, "conserved total: %d (expected %d)\n", r.total, r.expected)
	fmt.Fprintf(w, "bucket loads: min %d max %d mean %.2f over %d buckets\n",
		report.Min, report.Max, report.Mean, report.Buckets)

	names := make([]string, 0, len(r.stats))
	for name := range r.stats {
		if strings.HasSuffix(name, "_duration") {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	for _, name := range names {
		st := r.stats[name]
		fmt.Fprintf(w, "%-40s n=%-8d mean=%8.0fns median=%8.0fns max=%dns\n", name, st.Count, st.Mean, st.Median, st.Max)
	}
}

// runBench runs workers that mix keyed operations on a shared map with transfers between
// two account maps. Each transfer debits checking and, under the same bucket lock, credits
// savings, so the combined balance must never change.
func runBench(ctx context.Context, opts benchOptions, logger hclog.Logger) (benchReport, error) {
	err := opts.validate()
	if err != nil {
		return benchReport{}, err
	}

	hash := bucketmap.WithHashAlgorithm[int, int](opts.hash)

	inner, err := bucketmap.New(opts.buckets, hash)
	if err != nil {
		return benchReport{}, err
	}

	// created in this order so checking has the lower ID and is always locked first
	checking, err := bucketmap.New(opts.buckets, hash)
	if err != nil {
		return benchReport{}, err
	}

	savings, err := bucketmap.New(opts.buckets, hash)
	if err != nil {
		return benchReport{}, err
	}

	for account := range opts.accounts {
		checking.Insert(account, initialBalance, nil)
		savings.Insert(account, 0, nil)
	}

	collector := stats.NewHistogramStatsCollector(stats.DefaultSampleWindow)
	m := middleware.NewStatsCollectorMiddleware[int, int](inner, collector)

	seed := opts.seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	logger.Debug("bench starting", "workers", opts.workers, "ops", opts.ops, "buckets", opts.buckets, "seed", seed)

	var ops, transfers atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for w := range opts.workers {
		rng := rand.New(rand.NewPCG(seed, uint64(w))) //nolint:gosec

		g.Go(func() error {
			for i := range opts.ops {
				if i%ctxCheckEvery == 0 {
					err := gctx.Err()
					if err != nil {
						return err
					}
				}

				key := rng.IntN(opts.keys)

				switch rng.IntN(5) {
				case 0:
					m.Insert(key, i, nil)
				case 1:
					m.Upsert(key, i, nil, nil)
				case 2:
					m.DoWith(key, func(v *int) { *v++ }, nil)
				case 3:
					m.Remove(key, nil)
				default:
					account := rng.IntN(opts.accounts)
					amount := rng.IntN(2*initialBalance) - initialBalance

					checking.DoWith(account, func(v *int) { *v -= amount }, func() {
						savings.DoWith(account, func(v *int) { *v += amount }, nil)
					})
					transfers.Add(1)
				}

				ops.Add(1)
			}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return benchReport{}, ewrap.Wrap(err, "bench")
	}

	report := benchReport{
		ops:       ops.Load(),
		transfers: transfers.Load(),
		elapsed:   time.Since(start),
		expected:  opts.accounts * initialBalance,
		loads:     inner.BucketLoads(),
		stats:     collector.GetStats(),
	}

	sum := func(_ int, v int) { report.total += v }

	checking.DoAllReadonly(sum, func() {
		savings.DoAllReadonly(sum, nil)
	})

	if report.total != report.expected {
		return report, ewrap.Newf("bench: conserved total is %d, want %d", report.total, report.expected)
	}

	logger.Debug("bench finished", "ops", report.ops, "elapsed", report.elapsed)

	return report, nil
}
