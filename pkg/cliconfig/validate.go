package cliconfig

import (
	"errors"
	"fmt"
	"strings"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats = []string{"text", "json"}
	validSchedulers = []string{"timer", "shared"}
)

// Validate checks the merged configuration. Files are checked against the
// schema when loaded; Validate also covers env and flag values and the
// constraints between fields.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	checkPort := func(name string, port int) {
		if port < 1 || port > 65535 {
			add("%s %d is out of range (1-65535)", name, port)
		}
	}
	checkPort("port", c.Port)

	if c.MaxConnections < 0 {
		add("maxConnections must not be negative, got %d", c.MaxConnections)
	}
	if c.MaxLogEntries < 1 {
		add("maxLogEntries must be positive, got %d", c.MaxLogEntries)
	}
	if c.DefaultLimit < 1 {
		add("defaultLimit must be positive, got %d", c.DefaultLimit)
	}
	if c.LogLevel != "" && !oneOf(strings.ToLower(c.LogLevel), validLogLevels) {
		add("invalid log level %q (valid: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.LogFormat != "" && !oneOf(strings.ToLower(c.LogFormat), validLogFormats) {
		add("invalid log format %q (valid: %s)", c.LogFormat, strings.Join(validLogFormats, ", "))
	}

	if c.Stream.DefaultIntervalMs < 100 || c.Stream.DefaultIntervalMs > 60000 {
		add("stream.defaultIntervalMs %d is out of range (100-60000)", c.Stream.DefaultIntervalMs)
	}
	if !oneOf(c.Stream.Scheduler, validSchedulers) {
		add("invalid scheduler %q (valid: %s)", c.Stream.Scheduler, strings.Join(validSchedulers, ", "))
	}

	sim := c.Simulation
	checkRate := func(name string, v float64) {
		if v < 0 || v > 1 {
			add("%s %g must be between 0 and 1", name, v)
		}
	}
	checkRate("simulation.slowRate", sim.SlowRate)
	checkRate("simulation.errorRate", sim.ErrorRate)
	if sim.SlowMinMs > sim.SlowMaxMs {
		add("simulation.slowMinMs %d exceeds slowMaxMs %d", sim.SlowMinMs, sim.SlowMaxMs)
	}
	if sim.FastMinMs > sim.FastMaxMs {
		add("simulation.fastMinMs %d exceeds fastMaxMs %d", sim.FastMinMs, sim.FastMaxMs)
	}

	if c.RateLimit.Enabled && c.RateLimit.RPS < 0 {
		add("rateLimit.rps must not be negative, got %g", c.RateLimit.RPS)
	}

	if c.MQTT.Enabled {
		checkPort("mqtt.port", c.MQTT.Port)
		if c.MQTT.Port == c.Port {
			add("mqtt.port %d conflicts with port", c.MQTT.Port)
		}
		if c.MQTT.PublishIntervalMs < 100 {
			add("mqtt.publishIntervalMs must be at least 100, got %d", c.MQTT.PublishIntervalMs)
		}
	}

	return errors.Join(errs...)
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
