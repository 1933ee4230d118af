// Package hub fans messages out to a dynamic set of passive subscribers.
//
// Each subscriber is a Sink. Attach greets the sink with a handshake frame
// before it joins the set; Broadcast serializes a message once and writes
// it to every attached sink. A sink whose write fails is dropped on the
// spot and the caller of Broadcast never sees the error.
package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/simmurator/simmurator/internal/id"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/metrics"
)

// ErrClosed is returned by sinks that can no longer accept writes.
var ErrClosed = errors.New("hub: sink closed")

// Sink is one subscriber's output channel. Send must not block for longer
// than a single write attempt; implementations backed by slow transports
// should buffer and fail fast when the buffer is full.
type Sink interface {
	Send(msg []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(msg []byte) error

// Send calls f(msg).
func (f SinkFunc) Send(msg []byte) error { return f(msg) }

// Handle identifies an attached sink.
type Handle struct {
	id       string
	sink     Sink
	detached atomic.Bool
}

// ID returns the handle's id, used for log correlation.
func (h *Handle) ID() string { return h.id }

// Detached reports whether the handle has left the hub.
func (h *Handle) Detached() bool { return h.detached.Load() }

// ConnectedMessage is the default handshake frame.
type ConnectedMessage struct {
	Type string `json:"type"`
	Data struct {
		Message string `json:"message"`
	} `json:"data"`
}

// DefaultHandshake returns {"type":"connected","data":{"message":"SSE stream connected"}}.
func DefaultHandshake() ConnectedMessage {
	var m ConnectedMessage
	m.Type = "connected"
	m.Data.Message = "SSE stream connected"
	return m
}

// Hub is the broadcast fan-out. The zero value is not usable; call New.
type Hub struct {
	mu        sync.RWMutex
	handles   map[*Handle]struct{}
	handshake []byte
	log       *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithHandshake replaces the frame sent on Attach.
func WithHandshake(msg any) Option {
	return func(h *Hub) {
		if data, err := json.Marshal(msg); err == nil {
			h.handshake = data
		}
	}
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		handles: make(map[*Handle]struct{}),
		log:     logging.Nop(),
	}
	h.handshake, _ = json.Marshal(DefaultHandshake())
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach sends the handshake to sink and, if that succeeds, adds it to the
// subscriber set. Messages broadcast before Attach returns are not replayed.
func (h *Hub) Attach(sink Sink) (*Handle, error) {
	handle := &Handle{id: id.Prefixed("sub"), sink: sink}

	if err := sink.Send(h.handshake); err != nil {
		handle.detached.Store(true)
		return nil, err
	}

	h.mu.Lock()
	h.handles[handle] = struct{}{}
	n := len(h.handles)
	h.mu.Unlock()

	h.log.Debug("subscriber attached", "subscriber", handle.id, "subscribers", n)
	return handle, nil
}

// Detach removes handle from the hub. Detaching twice, or detaching a
// handle that was already pruned, is a no-op.
func (h *Hub) Detach(handle *Handle) {
	if handle == nil || !handle.detached.CompareAndSwap(false, true) {
		return
	}
	h.mu.Lock()
	delete(h.handles, handle)
	h.mu.Unlock()
	h.log.Debug("subscriber detached", "subscriber", handle.id)
}

// Broadcast serializes msg once and delivers it to every attached handle.
// Handles whose write fails are removed. Nothing is returned to the caller.
func (h *Hub) Broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode broadcast", "error", err)
		return
	}
	h.BroadcastRaw(data)
}

// BroadcastRaw delivers an already encoded message.
func (h *Hub) BroadcastRaw(data []byte) {
	h.mu.RLock()
	snapshot := make([]*Handle, 0, len(h.handles))
	for handle := range h.handles {
		snapshot = append(snapshot, handle)
	}
	h.mu.RUnlock()

	metrics.HubBroadcasts.Inc()

	var failed []*Handle
	for _, handle := range snapshot {
		if handle.detached.Load() {
			continue
		}
		if err := handle.sink.Send(data); err != nil {
			h.log.Debug("dropping subscriber after failed write", "subscriber", handle.id, "error", err)
			failed = append(failed, handle)
		}
	}

	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	for _, handle := range failed {
		if handle.detached.CompareAndSwap(false, true) {
			delete(h.handles, handle)
			metrics.HubPruned.Inc()
		}
	}
	h.mu.Unlock()
}

// Count returns the number of attached handles.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handles)
}
