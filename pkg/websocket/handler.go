package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	ws "github.com/coder/websocket"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/metrics"
	"github.com/simmurator/simmurator/pkg/sensor"
	"github.com/simmurator/simmurator/pkg/session"
)

// DefaultReadLimit caps inbound message size in bytes.
const DefaultReadLimit = 64 * 1024

// Handler upgrades requests and runs one streaming session per connection.
type Handler struct {
	provider        sensor.Provider
	scheduler       session.Scheduler
	defaultInterval int64
	heartbeat       time.Duration
	readLimit       int64
	log             *slog.Logger

	mu    sync.Mutex
	conns map[*Connection]struct{}
	wg    sync.WaitGroup
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithScheduler sets the scheduler shared by all sessions.
func WithScheduler(s session.Scheduler) HandlerOption {
	return func(h *Handler) {
		if s != nil {
			h.scheduler = s
		}
	}
}

// WithDefaultInterval sets the initial push interval of new sessions.
func WithDefaultInterval(ms int64) HandlerOption {
	return func(h *Handler) {
		h.defaultInterval = ms
	}
}

// WithHeartbeat enables server pings every interval. A failed ping closes
// the connection.
func WithHeartbeat(interval time.Duration) HandlerOption {
	return func(h *Handler) {
		h.heartbeat = interval
	}
}

// WithReadLimit sets the maximum inbound message size.
func WithReadLimit(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHandler creates a WebSocket handler serving readings from provider.
func NewHandler(provider sensor.Provider, opts ...HandlerOption) *Handler {
	h := &Handler{
		provider:        provider,
		scheduler:       session.TimerScheduler{},
		defaultInterval: session.DefaultIntervalMs,
		readLimit:       DefaultReadLimit,
		log:             logging.Nop(),
		conns:           make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !IsWebSocketRequest(r) {
		http.Error(w, "WebSocket upgrade required", http.StatusBadRequest)
		return
	}

	wsConn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true, // any origin, same as the REST routes
		CompressionMode:    ws.CompressionDisabled,
	})
	if err != nil {
		h.log.Debug("websocket accept failed", "error", err)
		return
	}
	wsConn.SetReadLimit(h.readLimit)

	conn := NewConnection(wsConn, r)
	h.track(conn)

	h.wg.Add(1)
	go h.handleConnection(conn)
}

// handleConnection handles the lifecycle of a WebSocket connection.
func (h *Handler) handleConnection(conn *Connection) {
	defer h.wg.Done()

	sess := session.New(conn.Context(), conn, h.provider,
		session.WithScheduler(h.scheduler),
		session.WithDefaultInterval(h.defaultInterval),
		session.WithLogger(h.log),
	)

	metrics.ActiveConnections.WithLabelValues(metrics.ProtocolWebSocket).Inc()
	h.log.Debug("websocket connected", "conn", conn.ID(), "session", sess.ID(), "remote", conn.RemoteAddr())

	defer func() {
		_ = conn.Close(ws.StatusNormalClosure, "")
		sess.Close()
		h.untrack(conn)
		metrics.ActiveConnections.WithLabelValues(metrics.ProtocolWebSocket).Dec()
		h.log.Debug("websocket disconnected", "conn", conn.ID(),
			"sent", conn.FramesSent(), "received", conn.FramesReceived())
	}()

	if h.heartbeat > 0 {
		go h.runHeartbeat(conn)
	}

	if err := sess.Start(); err != nil {
		return
	}

	// Read loop
	for {
		data, err := conn.ReadText()
		if err != nil {
			return
		}
		if err := sess.Handle(data); err != nil {
			if !errors.Is(err, session.ErrClosed) {
				h.log.Debug("websocket write failed", "conn", conn.ID(), "error", err)
			}
			return
		}
	}
}

// runHeartbeat sends periodic pings to keep the connection alive.
func (h *Handler) runHeartbeat(conn *Connection) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Context().Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(conn.Context(), h.heartbeat)
			err := conn.Ping(pingCtx)
			cancel()

			if err != nil {
				_ = conn.Close(ws.StatusGoingAway, ReasonPingTimeout)
				return
			}
		}
	}
}

// Count returns the number of open connections.
func (h *Handler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll closes every connection with a going-away status and waits for
// their sessions to finish, or for ctx to expire.
func (h *Handler) CloseAll(ctx context.Context) error {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close(ws.StatusGoingAway, ReasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) track(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Handler) untrack(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// isWebSocketUpgrade checks if the request is a WebSocket upgrade request.
func isWebSocketUpgrade(r *http.Request) bool {
	conn := r.Header.Get("Connection")
	if !strings.Contains(strings.ToLower(conn), "upgrade") {
		return false
	}
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// IsWebSocketRequest returns true if the request is a WebSocket upgrade request.
func IsWebSocketRequest(r *http.Request) bool {
	return isWebSocketUpgrade(r)
}
