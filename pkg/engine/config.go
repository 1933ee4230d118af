package engine

import (
	"time"

	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/simmurator/simmurator/pkg/session"
	"github.com/simmurator/simmurator/pkg/sse"
)

// Default server settings.
const (
	DefaultPort         = 4040
	DefaultStaticDir    = "dist"
	DefaultAccessLimit  = 50
	DefaultReadTimeout  = 15 * time.Second
	DefaultShutdownWait = 5 * time.Second
)

// Config holds the runtime settings of a Server.
type Config struct {
	Port          int
	StaticDir     string
	MaxLogEntries int
	DefaultLimit  int
	// MaxConnections caps concurrent TCP connections; 0 means unlimited.
	// Open streams and sockets count against it.
	MaxConnections int

	Stream     StreamConfig
	Simulation SimulationConfig
	RateLimit  RateLimitConfig
}

// StreamConfig tunes the SSE and WebSocket streams.
type StreamConfig struct {
	DefaultIntervalMs int64
	Scheduler         string // session.SchedulerTimer or session.SchedulerShared
	Keepalive         time.Duration
	SSEBuffer         int
}

// SimulationConfig shapes the latency and failures injected into
// GET /api/v1/sensors/{key}.
type SimulationConfig struct {
	SlowRate  float64
	SlowMin   time.Duration
	SlowMax   time.Duration
	FastMin   time.Duration
	FastMax   time.Duration
	ErrorRate float64
}

// RateLimitConfig enables per-client limiting of /api/v1/*.
type RateLimitConfig struct {
	Enabled        bool
	RPS            float64
	Burst          int
	TrustForwarded bool
}

// DefaultConfig returns the settings the server runs with out of the box.
func DefaultConfig() Config {
	return Config{
		Port:          DefaultPort,
		StaticDir:     DefaultStaticDir,
		MaxLogEntries: requestlog.MaxEntries,
		DefaultLimit:  DefaultAccessLimit,
		Stream: StreamConfig{
			DefaultIntervalMs: session.DefaultIntervalMs,
			Scheduler:         session.SchedulerTimer,
			Keepalive:         sse.DefaultKeepalive,
			SSEBuffer:         sse.DefaultBufferSize,
		},
		Simulation: DefaultSimulation(),
	}
}

// DefaultSimulation returns the polling simulation profile: one request in
// ten is slow and one in twenty fails.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		SlowRate:  0.10,
		SlowMin:   200 * time.Millisecond,
		SlowMax:   800 * time.Millisecond,
		FastMin:   5 * time.Millisecond,
		FastMax:   50 * time.Millisecond,
		ErrorRate: 0.05,
	}
}

// withDefaults fills zero values that have no meaningful zero setting.
func (c Config) withDefaults() Config {
	if c.MaxLogEntries <= 0 {
		c.MaxLogEntries = requestlog.MaxEntries
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultAccessLimit
	}
	if c.Stream.DefaultIntervalMs <= 0 {
		c.Stream.DefaultIntervalMs = session.DefaultIntervalMs
	}
	if c.Stream.Keepalive <= 0 {
		c.Stream.Keepalive = sse.DefaultKeepalive
	}
	if c.Stream.SSEBuffer <= 0 {
		c.Stream.SSEBuffer = sse.DefaultBufferSize
	}
	return c
}
