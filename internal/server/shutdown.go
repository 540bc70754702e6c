package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/gptwork/internal/config"
)

// ShutdownHandler manages graceful shutdown of services.
type ShutdownHandler struct {
	mu           sync.Mutex
	hooks        []ShutdownHook
	timeout      time.Duration
	signals      []os.Signal
	log          logrus.FieldLogger
	shutdownCh   chan struct{}
	doneCh       chan struct{}
	started      bool
	shutdownOnce sync.Once
	doneOnce     sync.Once
}

// ShutdownHook is a function called during shutdown.
type ShutdownHook struct {
	Name     string
	Priority int // Lower priority runs first
	Fn       func(ctx context.Context) error
}

// ShutdownConfig configures the shutdown handler.
type ShutdownConfig struct {
	// Timeout for graceful shutdown (default: 30s)
	Timeout time.Duration
	// Signals to listen for (default: SIGTERM, SIGINT)
	Signals []os.Signal
	Logger  logrus.FieldLogger
}

// DefaultShutdownConfig returns default configuration.
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGTERM, syscall.SIGINT},
	}
}

// NewShutdownHandler creates a new shutdown handler.
func NewShutdownHandler(cfg *ShutdownConfig) *ShutdownHandler {
	def := DefaultShutdownConfig()
	if cfg == nil {
		cfg = def
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = def.Timeout
	}
	signals := cfg.Signals
	if len(signals) == 0 {
		signals = def.Signals
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &ShutdownHandler{
		timeout:    timeout,
		signals:    signals,
		log:        log,
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// RegisterHook adds a shutdown hook.
func (s *ShutdownHandler) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	s.Register(ShutdownHook{Name: name, Priority: priority, Fn: fn})
}

// Register adds a prebuilt hook. Hooks with equal priority run in
// registration order.
func (s *ShutdownHandler) Register(hook ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, hook)
	sort.SliceStable(s.hooks, func(i, j int) bool {
		return s.hooks[i].Priority < s.hooks[j].Priority
	})
}

// Start begins listening for shutdown signals.
func (s *ShutdownHandler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, s.signals...)

	go func() {
		select {
		case sig := <-sigCh:
			signal.Stop(sigCh)
			s.log.WithField("signal", sig.String()).Info("shutdown signal received")
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
		case <-s.shutdownCh:
			signal.Stop(sigCh)
		}
		s.shutdown()
	}()
}

// Shutdown triggers a manual shutdown. It is a no-op before Start.
func (s *ShutdownHandler) Shutdown() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})
}

// Wait blocks until shutdown is complete.
func (s *ShutdownHandler) Wait() {
	<-s.doneCh
}

// WaitWithTimeout blocks until shutdown is complete or timeout.
func (s *ShutdownHandler) WaitWithTimeout(timeout time.Duration) bool {
	select {
	case <-s.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Done returns a channel that closes when shutdown is complete.
func (s *ShutdownHandler) Done() <-chan struct{} {
	return s.doneCh
}

// ShutdownCh returns a channel that closes when shutdown starts.
func (s *ShutdownHandler) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

func (s *ShutdownHandler) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	hooks := make([]ShutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	// A failing hook does not stop the ones after it.
	for _, hook := range hooks {
		if err := hook.Fn(ctx); err != nil {
			s.log.WithError(err).WithField("hook", hook.Name).Error("shutdown hook failed")
		}
	}

	s.doneOnce.Do(func() {
		close(s.doneCh)
	})
}

// HTTPServerShutdownHook creates a hook for HTTP server shutdown.
func HTTPServerShutdownHook(name string, shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{
		Name:     name,
		Priority: 10, // Run early to stop accepting new connections
		Fn:       shutdownFn,
	}
}

// TracingShutdownHook creates a hook for tracing provider shutdown.
func TracingShutdownHook(shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{
		Name:     "tracing",
		Priority: 80, // After in-flight requests have ended their spans
		Fn:       shutdownFn,
	}
}

// GracefulServer serves the proxy routes next to the health probes and
// drains them on shutdown.
type GracefulServer struct {
	Health   *HealthServer
	Shutdown *ShutdownHandler

	cfg      config.ServerConfig
	srv      *http.Server
	listener net.Listener
	log      logrus.FieldLogger
}

// NewGracefulServer mounts the probes on a mux in front of handler. Paths
// the probes do not claim fall through to handler.
func NewGracefulServer(cfg config.ServerConfig, handler http.Handler, health *HealthServer, log logrus.FieldLogger) *GracefulServer {
	if log == nil {
		log = logrus.StandardLogger()
	}

	mux := http.NewServeMux()
	health.Mount(mux)
	mux.Handle("/", handler)

	shutdown := NewShutdownHandler(&ShutdownConfig{
		Timeout: cfg.ShutdownTimeout,
		Logger:  log,
	})

	g := &GracefulServer{
		Health:   health,
		Shutdown: shutdown,
		cfg:      cfg,
		log:      log,
		srv: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	// Stop advertising readiness before the listener drains.
	shutdown.RegisterHook("readiness", 0, func(ctx context.Context) error {
		health.SetReady(false)
		return nil
	})
	shutdown.Register(HTTPServerShutdownHook("http-server", g.srv.Shutdown))

	return g
}

// Start binds the listen address, serves in the background and marks the
// server ready. Bind errors are returned synchronously.
func (g *GracefulServer) Start() error {
	ln, err := net.Listen("tcp", g.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", g.cfg.ListenAddr, err)
	}
	g.listener = ln

	g.Shutdown.Start()

	go func() {
		if err := g.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.WithError(err).Error("http server stopped")
			g.Shutdown.Shutdown()
		}
	}()

	g.Health.SetReady(true)
	g.log.WithField("addr", ln.Addr().String()).Info("listening")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (g *GracefulServer) Addr() string {
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Wait waits for shutdown to complete.
func (g *GracefulServer) Wait() {
	g.Shutdown.Wait()
}

// RegisterHook adds a shutdown hook.
func (g *GracefulServer) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	g.Shutdown.RegisterHook(name, priority, fn)
}
