package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/simmurator/simmurator/pkg/hub"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/metrics"
	"github.com/simmurator/simmurator/pkg/ratelimit"
	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/simmurator/simmurator/pkg/sensor"
	"github.com/simmurator/simmurator/pkg/session"
	"github.com/simmurator/simmurator/pkg/sse"
	"github.com/simmurator/simmurator/pkg/websocket"
	"golang.org/x/net/netutil"
)

// Server is the simmurator HTTP server. It owns the access log store and
// the broadcast hub for its whole lifetime.
type Server struct {
	cfg      Config
	log      *slog.Logger
	provider sensor.Provider
	sim      *Simulator

	store     *requestlog.Store
	hub       *hub.Hub
	scheduler session.Scheduler
	sse       *sse.Handler
	ws        *websocket.Handler
	limiter   *ratelimit.PerIPLimiter
	handler   http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error
	cancelBase context.CancelFunc
	running    bool
	closeOnce  sync.Once

	// startedAt is read by request handlers while Stop holds mu.
	startedAt atomic.Int64
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithProvider replaces the built-in sensor registry.
func WithProvider(p sensor.Provider) ServerOption {
	return func(s *Server) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithSimulator replaces the simulator built from Config.Simulation.
func WithSimulator(sim *Simulator) ServerOption {
	return func(s *Server) {
		if sim != nil {
			s.sim = sim
		}
	}
}

// NewServer creates a Server. Nothing listens until Start or Run is called,
// but Handler is usable right away.
func NewServer(cfg Config, opts ...ServerOption) *Server {
	s := &Server{
		cfg: cfg.withDefaults(),
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.provider == nil {
		s.provider = sensor.NewRegistry()
	}
	if s.sim == nil {
		s.sim = NewSimulator(s.cfg.Simulation, nil)
	}

	s.store = requestlog.NewStore(s.cfg.MaxLogEntries)
	s.hub = hub.New(hub.WithLogger(logging.Component(s.log, "hub")))
	s.store.SetListener(s.publish)

	s.scheduler = session.NewScheduler(s.cfg.Stream.Scheduler)
	s.sse = sse.NewHandler(s.hub,
		sse.WithKeepalive(s.cfg.Stream.Keepalive),
		sse.WithBufferSize(s.cfg.Stream.SSEBuffer),
		sse.WithLogger(logging.Component(s.log, "sse")),
	)
	s.ws = websocket.NewHandler(s.provider,
		websocket.WithScheduler(s.scheduler),
		websocket.WithDefaultInterval(s.cfg.Stream.DefaultIntervalMs),
		websocket.WithLogger(logging.Component(s.log, "websocket")),
	)
	if s.cfg.RateLimit.Enabled {
		s.limiter = ratelimit.NewPerIPLimiter(ratelimit.PerIPConfig{
			Rate:           s.cfg.RateLimit.RPS,
			Burst:          s.cfg.RateLimit.Burst,
			TrustForwarded: s.cfg.RateLimit.TrustForwarded,
		})
	}

	s.handler = s.routes()
	return s
}

// publish forwards a recorded entry to stream subscribers.
func (s *Server) publish(e requestlog.Entry) {
	s.hub.Broadcast(requestlog.NewAccessEvent(e))
	metrics.AccessLogEntries.Set(float64(s.store.Len()))
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Store returns the access log store.
func (s *Server) Store() *requestlog.Store { return s.store }

// Hub returns the access event hub.
func (s *Server) Hub() *hub.Hub { return s.hub }

// Provider returns the sensor provider shared by every route.
func (s *Server) Provider() sensor.Provider { return s.provider }

// Scheduler returns the tick scheduler used by socket sessions.
func (s *Server) Scheduler() session.Scheduler { return s.scheduler }

// Start listens on the configured port and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	// Cancelling the base context ends SSE streams, which Shutdown would
	// otherwise wait on forever.
	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancelBase = cancel
	s.listener = ln
	s.serveErr = make(chan error, 1)
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
	}

	s.log.Info("starting HTTP server", "addr", ln.Addr().String())
	go func(srv *http.Server, errc chan<- error) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server error", "error", err)
			errc <- err
		}
	}(s.httpServer, s.serveErr)

	s.running = true
	s.startedAt.Store(time.Now().UnixNano())
	return nil
}

// Run starts the server and blocks until ctx is done or serving fails,
// then shuts down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	s.mu.Lock()
	errc := s.serveErr
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errc:
		_ = s.Stop()
		return err
	}
}

// Stop gracefully shuts down the server: socket sessions are closed with
// "going away", SSE streams end, and in-flight requests get up to five
// seconds to finish. Stop also releases the limiter and scheduler, so a
// stopped server cannot be restarted.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownWait)
	defer cancel()

	var errs []error
	if s.running {
		s.cancelBase()
	}
	if err := s.ws.CloseAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("websocket close: %w", err))
	}
	if s.running {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
		s.running = false
		s.startedAt.Store(0)
		s.log.Info("HTTP server stopped")
	}
	s.release()

	return errors.Join(errs...)
}

// release stops background goroutines owned by the server.
func (s *Server) release() {
	s.closeOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		if c, ok := s.scheduler.(interface{ Close() }); ok {
			c.Close()
		}
	})
}

// Addr returns the listening address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Uptime returns how long the server has been serving.
func (s *Server) Uptime() time.Duration {
	started := s.startedAt.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}
