package cliconfig

// Default values. They match engine.DefaultConfig and mqtt.DefaultConfig.
const (
	DefaultPort              = 4040
	DefaultStaticDir         = "dist"
	DefaultMaxLogEntries     = 500
	DefaultLimit             = 50
	DefaultIntervalMs        = 1000
	DefaultScheduler         = "timer"
	DefaultKeepaliveSeconds  = 15
	DefaultSSEBuffer         = 64
	DefaultSlowRate          = 0.10
	DefaultSlowMinMs         = 200
	DefaultSlowMaxMs         = 800
	DefaultFastMinMs         = 5
	DefaultFastMaxMs         = 50
	DefaultErrorRate         = 0.05
	DefaultMQTTPort          = 1883
	DefaultPublishIntervalMs = 5000
	DefaultAccessTopic       = "simmurator/access"
)

// defaultKeys lists every key that has a default value.
var defaultKeys = []string{
	"port", "staticDir", "maxLogEntries", "defaultLimit",
	"stream.defaultIntervalMs", "stream.scheduler", "stream.keepaliveSeconds", "stream.sseBuffer",
	"simulation.slowRate", "simulation.slowMinMs", "simulation.slowMaxMs",
	"simulation.fastMinMs", "simulation.fastMaxMs", "simulation.errorRate",
	"rateLimit.enabled",
	"mqtt.enabled", "mqtt.port", "mqtt.publishIntervalMs", "mqtt.accessTopic",
}

// NewDefault creates a new Config with default values.
func NewDefault() *Config {
	cfg := &Config{
		Port:          DefaultPort,
		StaticDir:     DefaultStaticDir,
		MaxLogEntries: DefaultMaxLogEntries,
		DefaultLimit:  DefaultLimit,
		Stream: StreamConfig{
			DefaultIntervalMs: DefaultIntervalMs,
			Scheduler:         DefaultScheduler,
			KeepaliveSeconds:  DefaultKeepaliveSeconds,
			SSEBuffer:         DefaultSSEBuffer,
		},
		Simulation: SimulationConfig{
			SlowRate:  DefaultSlowRate,
			SlowMinMs: DefaultSlowMinMs,
			SlowMaxMs: DefaultSlowMaxMs,
			FastMinMs: DefaultFastMinMs,
			FastMaxMs: DefaultFastMaxMs,
			ErrorRate: DefaultErrorRate,
		},
		MQTT: MQTTConfig{
			Port:              DefaultMQTTPort,
			PublishIntervalMs: DefaultPublishIntervalMs,
			AccessTopic:       DefaultAccessTopic,
		},
		Sources: make(map[string]string),
	}

	for _, key := range defaultKeys {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}
