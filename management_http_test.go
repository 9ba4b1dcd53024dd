package bucketmap

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	fiber "github.com/gofiber/fiber/v3"
	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/bucketmap/pkg/stats"
)

func startManagement(t *testing.T, m managementMap, collector stats.ICollector, opts ...ManagementHTTPOption) (*ManagementHTTPServer, string) {
	t.Helper()

	srv := NewManagementHTTPServer("127.0.0.1:0", opts...)

	err := srv.Start(context.Background(), m, collector)
	assert.Nil(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
	})

	// wait briefly for listener
	time.Sleep(30 * time.Millisecond)

	addr := srv.Address()
	assert.True(t, addr != "")

	return srv, "http://" + addr
}

func getJSON(t *testing.T, client *http.Client, url string, out any) int {
	t.Helper()

	resp, err := client.Get(url) //nolint:noctx
	assert.Nil(t, err)

	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode == http.StatusOK {
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

// TestManagementHTTP_BasicEndpoints spins up the management HTTP server on an ephemeral port
// and validates core endpoints.
func TestManagementHTTP_BasicEndpoints(t *testing.T) {
	m := MustNew[int, string](4, WithHasher[int, string](func(k int) uint64 { return uint64(k) }))
	for _, k := range []int{0, 1, 2, 3, 4, 8, 12} {
		m.Insert(k, "v", nil)
	}

	collector := stats.NewHistogramStatsCollector(0)
	collector.Incr("bucketmap_insert_count", 1)

	_, base := startManagement(t, m, collector)
	client := &http.Client{Timeout: 2 * time.Second}

	assert.Equal(t, http.StatusOK, getJSON(t, client, base+"/health", nil))

	var cfg map[string]any

	assert.Equal(t, http.StatusOK, getJSON(t, client, base+"/config", &cfg))
	assert.Equal(t, float64(4), cfg["buckets"])
	assert.Equal(t, "custom", cfg["hashAlgorithm"])
	assert.Equal(t, float64(m.ID()), cfg["id"])

	var length map[string]int

	assert.Equal(t, http.StatusOK, getJSON(t, client, base+"/len", &length))
	assert.Equal(t, 7, length["len"])

	var report BucketReport

	assert.Equal(t, http.StatusOK, getJSON(t, client, base+"/buckets", &report))
	assert.Equal(t, []int{4, 1, 1, 1}, report.Loads)
	assert.Equal(t, 1, report.Min)
	assert.Equal(t, 4, report.Max)
	assert.Equal(t, 1.75, report.Mean)

	var statsBody map[string]any

	assert.Equal(t, http.StatusOK, getJSON(t, client, base+"/stats", &statsBody))
	assert.True(t, statsBody["bucketmap_insert_count"] != nil)

	resp, err := client.Post(base+"/clear", "application/json", nil) //nolint:noctx
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, 0, m.Len())
}

func TestManagementHTTP_StatsWithoutCollector(t *testing.T) {
	_, base := startManagement(t, MustNew[string, int](2), nil)
	client := &http.Client{Timeout: 2 * time.Second}

	assert.Equal(t, http.StatusNotFound, getJSON(t, client, base+"/stats", nil))
}

func TestManagementHTTP_Auth(t *testing.T) {
	auth := WithMgmtAuth(func(fiberCtx fiber.Ctx) error {
		if fiberCtx.Get("Authorization") != "Bearer secret" {
			return fiber.ErrUnauthorized
		}

		return nil
	})

	_, base := startManagement(t, MustNew[string, int](2), nil, auth)
	client := &http.Client{Timeout: 2 * time.Second}

	assert.Equal(t, http.StatusUnauthorized, getJSON(t, client, base+"/health", nil))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, base+"/health", nil)
	assert.Nil(t, err)
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := client.Do(req)
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestManagementHTTP_StartIdempotentAndShutdown(t *testing.T) {
	m := MustNew[string, int](2)
	srv := NewManagementHTTPServer("127.0.0.1:0")

	assert.Equal(t, "", srv.Address())
	assert.Nil(t, srv.Shutdown(context.Background()))

	assert.Nil(t, srv.Start(context.Background(), m, nil))

	addr := srv.Address()
	assert.Nil(t, srv.Start(context.Background(), m, nil))
	assert.Equal(t, addr, srv.Address())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Nil(t, srv.Shutdown(ctx))
}

func TestManagementHTTP_Snapshot(t *testing.T) {
	m := MustNew[string, int](2)
	m.Insert("a", 1, nil)

	var calls atomic.Int32

	save := WithMgmtSnapshot(func(context.Context) (int, error) {
		calls.Add(1)

		return m.Len(), nil
	})

	_, base := startManagement(t, m, nil, save)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Post(base+"/snapshot", "application/json", nil) //nolint:noctx
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int

	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()

	assert.Equal(t, 1, body["saved"])
	assert.Equal(t, int32(1), calls.Load())

	_, bare := startManagement(t, m, nil)

	resp, err = client.Post(bare+"/snapshot", "application/json", nil) //nolint:noctx
	assert.Nil(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestNewBucketReport(t *testing.T) {
	report := NewBucketReport([]int{2, 0, 4})
	assert.Equal(t, 3, report.Buckets)
	assert.Equal(t, 6, report.Entries)
	assert.Equal(t, 0, report.Min)
	assert.Equal(t, 4, report.Max)
	assert.Equal(t, 2.0, report.Mean)

	empty := NewBucketReport(nil)
	assert.Equal(t, 0, empty.Buckets)
	assert.Equal(t, 0.0, empty.Mean)
}
