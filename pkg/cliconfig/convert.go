package cliconfig

import (
	"io"
	"log/slog"
	"time"

	"github.com/simmurator/simmurator/pkg/engine"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/mqtt"
)

// EngineConfig converts c into the server's runtime settings.
func (c *Config) EngineConfig() engine.Config {
	sim := c.Simulation
	return engine.Config{
		Port:           c.Port,
		StaticDir:      c.StaticDir,
		MaxLogEntries:  c.MaxLogEntries,
		DefaultLimit:   c.DefaultLimit,
		MaxConnections: c.MaxConnections,
		Stream: engine.StreamConfig{
			DefaultIntervalMs: c.Stream.DefaultIntervalMs,
			Scheduler:         c.Stream.Scheduler,
			Keepalive:         time.Duration(c.Stream.KeepaliveSeconds) * time.Second,
			SSEBuffer:         c.Stream.SSEBuffer,
		},
		Simulation: engine.SimulationConfig{
			SlowRate:  sim.SlowRate,
			SlowMin:   ms(sim.SlowMinMs),
			SlowMax:   ms(sim.SlowMaxMs),
			FastMin:   ms(sim.FastMinMs),
			FastMax:   ms(sim.FastMaxMs),
			ErrorRate: sim.ErrorRate,
		},
		RateLimit: engine.RateLimitConfig{
			Enabled: c.RateLimit.Enabled,
			RPS:     c.RateLimit.RPS,
			Burst:   c.RateLimit.Burst,
		},
	}
}

// BridgeConfig converts the mqtt section into the bridge's settings.
func (c *Config) BridgeConfig() mqtt.Config {
	return mqtt.Config{
		Port:            c.MQTT.Port,
		PublishInterval: ms(c.MQTT.PublishIntervalMs),
		AccessTopic:     c.MQTT.AccessTopic,
	}
}

// Logger builds the operational logger described by c.
func (c *Config) Logger(out io.Writer) *slog.Logger {
	return logging.FromStrings(c.LogLevel, c.LogFormat, out)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
