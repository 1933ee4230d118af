package sse

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/simmurator/simmurator/pkg/hub"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/metrics"
)

// Handler streams every hub broadcast to the client as an SSE event.
type Handler struct {
	hub        *hub.Hub
	encoder    *Encoder
	keepalive  time.Duration
	bufferSize int
	log        *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithKeepalive sets the keepalive interval.
func WithKeepalive(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.keepalive = d
		}
	}
}

// WithBufferSize sets the per-subscriber queue length.
func WithBufferSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHandler creates an SSE handler attached to h.
func NewHandler(h *hub.Hub, opts ...Option) *Handler {
	handler := &Handler{
		hub:        h,
		encoder:    NewEncoder(),
		keepalive:  DefaultKeepalive,
		bufferSize: DefaultBufferSize,
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Check if Flusher is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	h.setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := NewSink(h.bufferSize)
	defer sink.Close()

	handle, err := h.hub.Attach(sink)
	if err != nil {
		h.log.Debug("sse attach failed", "error", err)
		return
	}
	defer h.hub.Detach(handle)

	metrics.ActiveConnections.WithLabelValues(metrics.ProtocolSSE).Inc()
	defer metrics.ActiveConnections.WithLabelValues(metrics.ProtocolSSE).Dec()

	h.log.Debug("sse client connected", "handle", handle.ID(), "remote", r.RemoteAddr)
	defer h.log.Debug("sse client disconnected", "handle", handle.ID())

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-sink.Frames():
			if _, err := w.Write(h.encoder.FormatData(frame)); err != nil {
				return
			}
			flusher.Flush()
		case <-sink.Done():
			// Overflowed. Drop the client; EventSource reconnects on its own.
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(h.encoder.FormatKeepalive())); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// setSSEHeaders sets required HTTP headers for SSE.
func (h *Handler) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentTypeEventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
}
