// Package cliconfig provides configuration types and loading for the
// simmurator CLI.
package cliconfig

// Config represents the complete configuration for the simmurator CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Local config file (.simmuratorrc.yaml in current directory), or the
// file named by --config
// 4. Global config file ($XDG_CONFIG_HOME/simmurator/config.yaml)
// 5. Default values (lowest priority)
type Config struct {
	// Server settings
	Port           int    `yaml:"port" json:"port"`
	StaticDir      string `yaml:"staticDir" json:"staticDir"`
	MaxConnections int    `yaml:"maxConnections,omitempty" json:"maxConnections,omitempty"`

	// Access log settings
	MaxLogEntries int `yaml:"maxLogEntries" json:"maxLogEntries"`
	DefaultLimit  int `yaml:"defaultLimit" json:"defaultLimit"`

	// Operational logging
	LogLevel  string `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	LogFormat string `yaml:"logFormat,omitempty" json:"logFormat,omitempty"`

	Stream     StreamConfig     `yaml:"stream" json:"stream"`
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit" json:"rateLimit"`
	MQTT       MQTTConfig       `yaml:"mqtt" json:"mqtt"`

	// Sources tracks where each value came from, keyed by dotted path.
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields holds the dotted keys present in a loaded file, so that
	// explicit zero values (errorRate: 0, enabled: false) still merge.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// StreamConfig tunes the SSE and WebSocket streams.
type StreamConfig struct {
	DefaultIntervalMs int64  `yaml:"defaultIntervalMs" json:"defaultIntervalMs"`
	Scheduler         string `yaml:"scheduler" json:"scheduler"`
	KeepaliveSeconds  int    `yaml:"keepaliveSeconds" json:"keepaliveSeconds"`
	SSEBuffer         int    `yaml:"sseBuffer" json:"sseBuffer"`
}

// SimulationConfig shapes the latency and failures of sensor polls.
type SimulationConfig struct {
	SlowRate  float64 `yaml:"slowRate" json:"slowRate"`
	SlowMinMs int     `yaml:"slowMinMs" json:"slowMinMs"`
	SlowMaxMs int     `yaml:"slowMaxMs" json:"slowMaxMs"`
	FastMinMs int     `yaml:"fastMinMs" json:"fastMinMs"`
	FastMaxMs int     `yaml:"fastMaxMs" json:"fastMaxMs"`
	ErrorRate float64 `yaml:"errorRate" json:"errorRate"`
}

// RateLimitConfig configures per-client limiting of /api/v1/*.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	RPS     float64 `yaml:"rps,omitempty" json:"rps,omitempty"`
	Burst   int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// MQTTConfig configures the optional MQTT bridge.
type MQTTConfig struct {
	Enabled           bool   `yaml:"enabled" json:"enabled"`
	Port              int    `yaml:"port" json:"port"`
	PublishIntervalMs int    `yaml:"publishIntervalMs" json:"publishIntervalMs"`
	AccessTopic       string `yaml:"accessTopic" json:"accessTopic"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFile    = "file"
	SourceFlag    = "flag"
)
