package websocket

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
	"github.com/simmurator/simmurator/internal/id"
)

// Close reasons sent to clients.
const (
	ReasonShutdown    = "server shutting down"
	ReasonPingTimeout = "ping timeout"
)

// Connection is one upgraded /ws/sensors socket. It satisfies the session
// writer, so frames pushed by the session go out through Send.
type Connection struct {
	id         string
	conn       *ws.Conn
	remoteAddr string
	openedAt   time.Time
	framesOut  atomic.Int64
	framesIn   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	// writers hold the read side; Close takes the write side so that it
	// never races a frame in flight.
	writers sync.RWMutex
	closed  atomic.Bool
}

// NewConnection wraps an accepted socket. r may be nil in tests.
func NewConnection(conn *ws.Conn, r *http.Request) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:       id.Prefixed("conn"),
		conn:     conn,
		openedAt: time.Now(),
		ctx:      ctx,
		cancel:   cancel,
	}
	if r != nil {
		c.remoteAddr = r.RemoteAddr
	}
	return c
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) RemoteAddr() string { return c.remoteAddr }

func (c *Connection) OpenedAt() time.Time { return c.openedAt }

// FramesSent counts text frames written to the client.
func (c *Connection) FramesSent() int64 { return c.framesOut.Load() }

// FramesReceived counts text frames read from the client. Binary frames
// are not counted.
func (c *Connection) FramesReceived() int64 { return c.framesIn.Load() }

// Context is cancelled when the connection closes.
func (c *Connection) Context() context.Context { return c.ctx }

func (c *Connection) IsClosed() bool { return c.closed.Load() }

// Send writes one text frame. A ctx cancelled mid-write tears down the
// socket, so pass Context() unless the write has its own deadline.
func (c *Connection) Send(ctx context.Context, frame []byte) error {
	c.writers.RLock()
	defer c.writers.RUnlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if err := c.conn.Write(ctx, ws.MessageText, frame); err != nil {
		return err
	}
	c.framesOut.Add(1)
	return nil
}

// ReadText blocks until the next text frame arrives. Binary frames are
// discarded. Close unblocks a pending read.
func (c *Connection) ReadText() ([]byte, error) {
	for {
		if c.closed.Load() {
			return nil, ErrConnectionClosed
		}
		typ, data, err := c.conn.Read(c.ctx)
		if err != nil {
			return nil, err
		}
		if typ != ws.MessageText {
			continue
		}
		c.framesIn.Add(1)
		return data, nil
	}
}

// Ping sends a ping and waits for the matching pong.
func (c *Connection) Ping(ctx context.Context) error {
	c.writers.RLock()
	defer c.writers.RUnlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}
	return c.conn.Ping(ctx)
}

// Close sends a close frame with code and reason. Only the first call has
// any effect; later calls return ErrConnectionClosed.
func (c *Connection) Close(code ws.StatusCode, reason string) error {
	if c.closed.Swap(true) {
		return ErrConnectionClosed
	}
	// A write blocked on a slow peer holds writers; cancelling releases it.
	c.cancel()

	c.writers.Lock()
	defer c.writers.Unlock()
	return c.conn.Close(code, reason)
}
