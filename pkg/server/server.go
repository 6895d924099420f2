// Package server owns the service lifecycle: it preflights and runs
// background resource managers, installs the middleware pipeline in front
// of the caller's router, binds the application and metrics listeners, and
// drives the coordinated drain on shutdown.
//
// Lifecycle: Starting -> Running -> Draining -> Stopped, driven by Run and
// Shutdown. Nothing is torn down while work depending on it is still in
// flight: requests drain before processes stop, and telemetry flushes last.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gantrykit/gantry/internal/logger"
	"github.com/gantrykit/gantry/pkg/auth"
	"github.com/gantrykit/gantry/pkg/httperr"
	"github.com/gantrykit/gantry/pkg/metrics"
	"github.com/gantrykit/gantry/pkg/middleware"
	"github.com/gantrykit/gantry/pkg/postgres"
)

// teardownSlack bounds the post-drain teardown (process loops, telemetry
// flush) beyond the request grace period.
const teardownSlack = 15 * time.Second

// Server coordinates the HTTP listeners, the middleware pipeline and the
// background processes of one service instance.
type Server struct {
	config  Config
	handler http.Handler

	state   lifecycle
	started atomic.Pointer[time.Time]
	tracker *middleware.Tracker

	mwConfig    *middleware.Config
	httpMetrics metrics.HTTPMetrics
	authService *auth.Service
	extraStages []middleware.Stage

	processes []Process
	running   []*runningProcess
	procErr   chan error
	checks    []readyCheck

	telemetryFlush func(context.Context) error

	appListener     net.Listener
	metricsListener net.Listener
	httpServer      *http.Server
	metricsServer   *http.Server

	boundAddr        string
	boundMetricsAddr string

	reqCancel  context.CancelFunc
	procCancel context.CancelFunc

	stopping     chan struct{}
	runOnce      sync.Once
	shutdownOnce sync.Once
}

// Option customizes a Server at construction time.
type Option func(*Server)

// WithMiddleware installs the stock middleware pipeline in front of the
// handler. m may be nil to skip request metrics.
func WithMiddleware(cfg middleware.Config, m metrics.HTTPMetrics) Option {
	return func(s *Server) {
		cfg.ApplyDefaults()
		s.mwConfig = &cfg
		s.httpMetrics = m
	}
}

// WithAuth puts the whole service behind bearer-token authentication,
// health endpoints excepted. The stage runs innermost, directly in front
// of the router. Services mixing public and protected routes should mount
// auth.Middleware on a route group instead.
func WithAuth(svc *auth.Service) Option {
	return func(s *Server) { s.authService = svc }
}

// WithStages appends extra pipeline stages between authentication and the
// router.
func WithStages(stages ...middleware.Stage) Option {
	return func(s *Server) { s.extraStages = append(s.extraStages, stages...) }
}

// WithProcess registers background processes. Registration order is startup
// order; teardown runs in reverse.
func WithProcess(procs ...Process) Option {
	return func(s *Server) { s.processes = append(s.processes, procs...) }
}

// WithPool attaches a database pool: its health loop runs as a managed
// process and its ping backs the "database" readiness check.
func WithPool(pool *postgres.Pool) Option {
	return func(s *Server) {
		s.processes = append(s.processes, pool.Process())
		s.checks = append(s.checks, readyCheck{name: "database", check: pool.Healthcheck})
	}
}

// WithReadyCheck registers a named dependency probe for /health/ready.
func WithReadyCheck(name string, check CheckFunc) Option {
	return func(s *Server) {
		s.checks = append(s.checks, readyCheck{name: name, check: check})
	}
}

// WithTelemetryFlush registers the telemetry shutdown hook. It runs last
// during teardown so shutdown-path spans are still exported.
func WithTelemetryFlush(flush func(context.Context) error) Option {
	return func(s *Server) { s.telemetryFlush = flush }
}

// WithListener serves the application on a pre-bound listener instead of
// binding Config.Addr. Useful for socket activation and tests.
func WithListener(ln net.Listener) Option {
	return func(s *Server) { s.appListener = ln }
}

// WithMetricsListener serves metrics on a pre-bound listener.
func WithMetricsListener(ln net.Listener) Option {
	return func(s *Server) { s.metricsListener = ln }
}

// New builds a Server around the given router.
//
// When the router is a chi.Router, the health endpoints and the fallback
// 404/405 envelope handlers are installed on it; otherwise the caller is
// expected to provide them. The configuration is validated in Run.
func New(cfg Config, handler http.Handler, opts ...Option) *Server {
	cfg.ApplyDefaults()

	s := &Server{
		config:   cfg,
		tracker:  &middleware.Tracker{},
		procErr:  make(chan error, 1),
		stopping: make(chan struct{}),
	}

	if router, ok := handler.(chi.Router); ok {
		router.NotFound(httperr.NotFoundHandler())
		router.MethodNotAllowed(httperr.MethodNotAllowedHandler())
		router.Get("/health", s.handleHealth)
		router.Get("/health/ready", s.handleReady)
	}

	for _, opt := range opts {
		opt(s)
	}

	stages := make([]middleware.Stage, 0, len(s.extraStages)+1)
	if s.authService != nil {
		// Service-wide enforcement still has to let probes through.
		stages = append(stages, middleware.ExceptHealth(auth.Middleware(s.authService)))
	}
	stages = append(stages, s.extraStages...)

	if s.mwConfig != nil {
		s.handler = middleware.Pipeline(*s.mwConfig, s.tracker, s.httpMetrics, stages...).Then(handler)
	} else {
		// Even without the stock stages the in-flight gate is installed:
		// it is what makes draining deterministic.
		chain := middleware.NewChain(middleware.InFlight(s.tracker))
		chain.Use(stages...)
		s.handler = chain.Then(handler)
	}

	return s
}

// Run starts the server and blocks until the context is cancelled, Shutdown
// is called, or a fatal error occurs.
//
// Startup order: process preflight (concurrent, bounded by PreRunTimeout),
// process run loops in registration order, then the listeners, so every
// accepted connection can be fully served. Any startup failure tears down
// what already started, in reverse, and is returned; no partially-started
// server is observable.
//
// Returns nil after a graceful shutdown. Only the first call runs the
// server; later calls return nil immediately.
func (s *Server) Run(ctx context.Context) error {
	var err error
	s.runOnce.Do(func() { err = s.run(ctx) })
	return err
}

func (s *Server) run(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	start := time.Now()
	s.started.Store(&start)
	logger.InfoCtx(ctx, "Starting server",
		logger.Component("server"),
		logger.Addr(s.config.Addr()))

	// Processes outlive the run context: during a drain they keep serving
	// until in-flight requests finish, so their context is cancelled
	// explicitly by shutdown rather than derived from ctx.
	procCtx, procCancel := context.WithCancel(context.Background())
	s.procCancel = procCancel
	defer procCancel()

	if err := s.preRunAll(ctx); err != nil {
		logger.ErrorCtx(ctx, "Startup preflight failed",
			logger.Component("server"), logger.Err(err))
		s.abort()
		return err
	}

	s.startProcesses(procCtx)

	if err := s.bind(); err != nil {
		logger.ErrorCtx(ctx, "Listener bind failed",
			logger.Component("server"), logger.Err(err))
		s.abort()
		return err
	}

	serveErr := make(chan error, 2)
	s.serve(serveErr)

	s.state.Advance(StateRunning)
	logger.InfoCtx(ctx, "Server running",
		logger.Component("server"),
		logger.State(StateRunning.String()),
		logger.Addr(s.boundAddr),
		logger.DurationMs(logger.Duration(start)))

	var runErr error
	select {
	case <-ctx.Done():
		logger.InfoCtx(ctx, "Shutdown signal received",
			logger.Component("server"))
	case <-s.stopping:
		// Shutdown was called directly.
	case err := <-serveErr:
		runErr = fmt.Errorf("listener failed: %w", err)
	case err := <-s.procErr:
		runErr = err
	}

	sdCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownGrace+teardownSlack)
	defer cancel()
	if err := s.Shutdown(sdCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// bind opens the listeners that were not injected via options. The
// application listener binds first; a metrics bind failure closes it so a
// failed startup holds no sockets.
func (s *Server) bind() error {
	if s.appListener == nil {
		ln, err := net.Listen("tcp", s.config.Addr())
		if err != nil {
			return fmt.Errorf("bind %s: %w", s.config.Addr(), err)
		}
		s.appListener = ln
	}
	s.boundAddr = s.appListener.Addr().String()

	if s.config.IsMetricsEnabled() && s.metricsListener == nil {
		ln, err := net.Listen("tcp", s.config.MetricsAddr())
		if err != nil {
			_ = s.appListener.Close()
			s.appListener = nil
			return fmt.Errorf("bind %s: %w", s.config.MetricsAddr(), err)
		}
		s.metricsListener = ln
	}
	if s.metricsListener != nil {
		s.boundMetricsAddr = s.metricsListener.Addr().String()
	}
	return nil
}

// serve starts both HTTP servers. Serve errors other than the expected
// ErrServerClosed surface on serveErr and bring the server down.
func (s *Server) serve(serveErr chan<- error) {
	reqCtx, reqCancel := context.WithCancel(context.Background())
	s.reqCancel = reqCancel

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return reqCtx },
	}
	go func() {
		if err := s.httpServer.Serve(s.appListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if s.metricsListener != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/health", s.handleHealth)

		s.metricsServer = &http.Server{
			Handler:      mux,
			ReadTimeout:  s.config.ReadTimeout,
			WriteTimeout: s.config.WriteTimeout,
			IdleTimeout:  s.config.IdleTimeout,
		}
		go func() {
			if err := s.metricsServer.Serve(s.metricsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}
}

// Shutdown drains in-flight requests and tears the server down.
//
// The drain is bounded by ShutdownGrace; requests still running at the
// deadline have their contexts cancelled and their connections closed.
// Processes then stop in reverse registration order and telemetry flushes
// last. Idempotent: only the first call performs the teardown, later calls
// return nil immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() { err = s.shutdown(ctx) })
	return err
}

func (s *Server) shutdown(ctx context.Context) error {
	close(s.stopping)
	s.state.Advance(StateDraining)
	s.tracker.SetDraining(true)

	logger.InfoCtx(ctx, "Draining server",
		logger.Component("server"),
		logger.State(StateDraining.String()),
		logger.InFlight(s.tracker.InFlight()))

	graceCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownGrace)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(graceCtx); err != nil {
			logger.WarnCtx(ctx, "Grace period elapsed, forcing connections closed",
				logger.Component("server"),
				logger.InFlight(s.tracker.InFlight()),
				logger.Err(err))
			if s.reqCancel != nil {
				s.reqCancel()
			}
			_ = s.httpServer.Close()
		}
	}
	if s.reqCancel != nil {
		s.reqCancel()
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(graceCtx); err != nil {
			_ = s.metricsServer.Close()
		}
	}

	s.teardownProcesses(ctx)
	if s.procCancel != nil {
		s.procCancel()
	}

	// Telemetry flushes last so teardown spans are exported too. An
	// incomplete flush is logged, never fatal.
	if s.telemetryFlush != nil {
		if err := s.telemetryFlush(ctx); err != nil {
			logger.WarnCtx(ctx, "Telemetry flush incomplete",
				logger.Component("server"), logger.Err(err))
		}
	}

	s.state.Advance(StateStopped)
	logger.InfoCtx(ctx, "Server stopped",
		logger.Component("server"),
		logger.State(StateStopped.String()))
	return nil
}

// abort tears down after a startup failure. It uses its own deadline since
// the run context may already be cancelled.
func (s *Server) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownGrace+teardownSlack)
	defer cancel()
	_ = s.Shutdown(ctx)
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return s.state.Current()
}

// InFlight returns the number of requests currently inside the pipeline.
func (s *Server) InFlight() int64 {
	return s.tracker.InFlight()
}

// Addr returns the bound application address, available once Running.
// With an injected listener this is where that listener is bound.
func (s *Server) Addr() string {
	return s.boundAddr
}

// MetricsAddr returns the bound metrics address, empty when disabled.
func (s *Server) MetricsAddr() string {
	return s.boundMetricsAddr
}

// Config returns the effective configuration, defaults applied.
func (s *Server) Config() Config {
	return s.config
}
