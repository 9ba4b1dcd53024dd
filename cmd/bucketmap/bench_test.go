package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/longbridgeapp/assert"
)

func TestRunBench_ConservesTotal(t *testing.T) {
	opts := benchOptions{
		workers:  4,
		ops:      2000,
		keys:     128,
		accounts: 16,
		buckets:  8,
		hash:     "murmur3",
		seed:     42,
	}

	report, err := runBench(context.Background(), opts, hclog.NewNullLogger())
	assert.Nil(t, err)

	assert.Equal(t, int64(8000), report.ops)
	assert.Equal(t, 16*initialBalance, report.total)
	assert.Equal(t, report.expected, report.total)
	assert.Equal(t, 8, len(report.loads))
	assert.True(t, report.transfers > 0)

	var out bytes.Buffer

	report.print(&out)
	assert.True(t, strings.Contains(out.String(), "conserved total: 1600 (expected 1600)"))
	assert.True(t, strings.Contains(out.String(), "bucketmap_insert_duration"))
}

func TestRunBench_InvalidOptions(t *testing.T) {
	_, err := runBench(context.Background(), benchOptions{buckets: 4, hash: "xxhash"}, hclog.NewNullLogger())
	assert.True(t, err != nil)

	_, err = runBench(context.Background(), benchOptions{
		workers: 1, ops: 1, keys: 1, accounts: 1, buckets: 0, hash: "xxhash",
	}, hclog.NewNullLogger())
	assert.True(t, err != nil)
}

func TestRunBench_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runBench(ctx, benchOptions{
		workers: 2, ops: 1000, keys: 16, accounts: 4, buckets: 4, hash: "xxhash",
	}, hclog.NewNullLogger())
	assert.True(t, err != nil)
}

func TestApp_Bench(t *testing.T) {
	var out bytes.Buffer

	app := newApp()
	app.Writer = &out

	err := app.Run([]string{
		"bucketmap", "--log-level", "error",
		"bench", "--workers", "2", "--ops", "500", "--buckets", "4", "--hash", "fnv", "--seed", "7",
	})
	assert.Nil(t, err)
	assert.True(t, strings.Contains(out.String(), "ops: 1000"))
}

func TestApp_BenchRejectsInvalidConfig(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"bucketmap", "bench", "--buckets", "0"})
	assert.True(t, err != nil)
}
