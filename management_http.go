package bucketmap

import (
	"context"
	"net"
	"slices"
	"sync"
	"time"

	fiber "github.com/gofiber/fiber/v3"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/bucketmap/internal/sentinel"
	"github.com/hyp3rd/bucketmap/pkg/stats"
)

// ManagementHTTPOption configures the management HTTP server.
type ManagementHTTPOption func(*ManagementHTTPServer)

// ManagementHTTPServer exposes read-mostly introspection of one map over HTTP.
type ManagementHTTPServer struct {
	addr         string
	app          *fiber.App
	readTimeout  time.Duration
	writeTimeout time.Duration
	authFunc     func(fiber.Ctx) error
	serveErr     func(error)
	saveFunc     func(context.Context) (int, error)

	mu      sync.Mutex
	ln      net.Listener
	started bool
}

// WithMgmtAuth sets an auth function (return error to block).
func WithMgmtAuth(fn func(fiber.Ctx) error) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.authFunc = fn }
}

// WithMgmtReadTimeout sets read timeout.
func WithMgmtReadTimeout(d time.Duration) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.readTimeout = d }
}

// WithMgmtWriteTimeout sets write timeout.
func WithMgmtWriteTimeout(d time.Duration) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.writeTimeout = d }
}

// WithMgmtServeErrorHandler sets a hook receiving the error the background listener exits with.
func WithMgmtServeErrorHandler(fn func(error)) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.serveErr = fn }
}

// WithMgmtSnapshot enables POST /snapshot, which calls save and reports how many entries
// it persisted.
func WithMgmtSnapshot(save func(context.Context) (int, error)) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.saveFunc = save }
}

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// NewManagementHTTPServer builds an HTTP server holder (lazy start).
func NewManagementHTTPServer(addr string, opts ...ManagementHTTPOption) *ManagementHTTPServer {
	srv := &ManagementHTTPServer{
		addr:         addr,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.app = fiber.New(fiber.Config{
		ReadTimeout:  srv.readTimeout,
		WriteTimeout: srv.writeTimeout,
	})

	return srv
}

// managementMap is the key/value-agnostic view of a map the server needs.
// Every *ConcurrentHashMap satisfies it.
type managementMap interface {
	ID() uint64
	Len() int
	Buckets() int
	BucketLoads() []int
	HashAlgorithm() string
	Clear()
}

// Start launches the listener (idempotent). collector may be nil, in which case /stats
// answers 404.
func (s *ManagementHTTPServer) Start(ctx context.Context, m managementMap, collector stats.ICollector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return ewrap.Wrap(err, "mgmt listen")
	}

	s.mountRoutes(ctx, m, collector)
	s.ln = ln

	go func() {
		serveErr := s.app.Listener(ln)
		if serveErr != nil && s.serveErr != nil {
			s.serveErr(serveErr)
		}
	}()

	s.started = true

	return nil
}

// Address returns the bound address (useful when passing ":0" for ephemeral port). Empty if not started yet.
func (s *ManagementHTTPServer) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return ""
	}

	return s.ln.Addr().String()
}

// Shutdown stops the server, giving up with sentinel.ErrMgmtHTTPShutdownTimeout when ctx
// is done first.
func (s *ManagementHTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}

	ch := make(chan error, 1)

	go func() {
		ch <- s.app.Shutdown()
	}()

	select {
	case <-ctx.Done():
		return sentinel.ErrMgmtHTTPShutdownTimeout
	case err := <-ch:
		return err
	}
}

func (s *ManagementHTTPServer) mountRoutes(ctx context.Context, m managementMap, collector stats.ICollector) {
	useAuth := s.wrapAuth
	s.registerBasic(useAuth, m, collector)
	s.registerBuckets(useAuth, m)
	s.registerControl(ctx, useAuth, m)
}

// wrapAuth returns an auth-wrapped handler if authFunc provided.
func (s *ManagementHTTPServer) wrapAuth(handler fiber.Handler) fiber.Handler { //nolint:ireturn
	if s.authFunc == nil {
		return handler
	}

	return func(fiberCtx fiber.Ctx) error {
		authErr := s.authFunc(fiberCtx)
		if authErr != nil {
			return authErr
		}

		return handler(fiberCtx)
	}
}

func (s *ManagementHTTPServer) registerBasic(
	useAuth func(fiber.Handler) fiber.Handler,
	m managementMap,
	collector stats.ICollector,
) {
	s.app.Get("/health", useAuth(func(fiberCtx fiber.Ctx) error { return fiberCtx.SendString("ok") }))
	s.app.Get("/config", useAuth(func(fiberCtx fiber.Ctx) error {
		return fiberCtx.JSON(fiber.Map{
			"id":            m.ID(),
			"buckets":       m.Buckets(),
			"hashAlgorithm": m.HashAlgorithm(),
		})
	}))
	s.app.Get("/len", useAuth(func(fiberCtx fiber.Ctx) error {
		return fiberCtx.JSON(fiber.Map{"len": m.Len()})
	}))
	s.app.Get("/stats", useAuth(func(fiberCtx fiber.Ctx) error {
		if collector == nil {
			return fiberCtx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stats collector not configured"})
		}

		return fiberCtx.JSON(collector.GetStats())
	}))
}

// BucketReport summarises how entries spread over the buckets of a map.
type BucketReport struct {
	Buckets int     `json:"buckets"`
	Entries int     `json:"entries"`
	Loads   []int   `json:"loads"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Mean    float64 `json:"mean"`
}

// NewBucketReport builds a report from per-bucket entry counts.
func NewBucketReport(loads []int) BucketReport {
	report := BucketReport{Buckets: len(loads), Loads: loads}
	if len(loads) == 0 {
		return report
	}

	for _, load := range loads {
		report.Entries += load
	}

	report.Min = slices.Min(loads)
	report.Max = slices.Max(loads)
	report.Mean = float64(report.Entries) / float64(len(loads))

	return report
}

func (s *ManagementHTTPServer) registerBuckets(useAuth func(fiber.Handler) fiber.Handler, m managementMap) {
	s.app.Get("/buckets", useAuth(func(fiberCtx fiber.Ctx) error {
		return fiberCtx.JSON(NewBucketReport(m.BucketLoads()))
	}))
}

func (s *ManagementHTTPServer) registerControl(
	ctx context.Context,
	useAuth func(fiber.Handler) fiber.Handler,
	m managementMap,
) {
	s.app.Post("/clear", useAuth(func(fiberCtx fiber.Ctx) error {
		m.Clear()

		return fiberCtx.SendStatus(fiber.StatusOK)
	}))
	s.app.Post("/snapshot", useAuth(func(fiberCtx fiber.Ctx) error {
		if s.saveFunc == nil {
			return fiberCtx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "snapshot store not configured"})
		}

		saved, err := s.saveFunc(ctx)
		if err != nil {
			return fiberCtx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return fiberCtx.JSON(fiber.Map{"saved": saved})
	}))
}
