package cliconfig

import (
	"os"
	"strconv"
)

// Environment variables read by LoadEnvConfig. PORT is honored for
// platforms that inject it; SIMMURATOR_PORT wins when both are set.
const (
	EnvPort              = "PORT"
	EnvSimmuratorPort    = "SIMMURATOR_PORT"
	EnvStaticDir         = "SIMMURATOR_STATIC_DIR"
	EnvMaxLogEntries     = "SIMMURATOR_MAX_LOG_ENTRIES"
	EnvMaxConnections    = "SIMMURATOR_MAX_CONNECTIONS"
	EnvLogLevel          = "SIMMURATOR_LOG_LEVEL"
	EnvLogFormat         = "SIMMURATOR_LOG_FORMAT"
	EnvScheduler         = "SIMMURATOR_SCHEDULER"
	EnvErrorRate         = "SIMMURATOR_ERROR_RATE"
	EnvSlowRate          = "SIMMURATOR_SLOW_RATE"
	EnvRateLimitEnabled  = "SIMMURATOR_RATE_LIMIT_ENABLED"
	EnvRateLimitRPS      = "SIMMURATOR_RATE_LIMIT_RPS"
	EnvMQTTEnabled       = "SIMMURATOR_MQTT_ENABLED"
	EnvMQTTPort          = "SIMMURATOR_MQTT_PORT"
	EnvMQTTAccessTopic   = "SIMMURATOR_MQTT_ACCESS_TOPIC"
	EnvMQTTPublishPeriod = "SIMMURATOR_MQTT_PUBLISH_INTERVAL_MS"
)

// LoadEnvConfig applies environment variables to cfg.
func LoadEnvConfig(cfg *Config) error {
	env, err := envConfig(os.LookupEnv)
	if err != nil {
		return err
	}
	MergeConfig(cfg, env, SourceEnv)
	return nil
}

// envConfig builds a Config holding only the variables that are set.
func envConfig(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{SetFields: make(map[string]bool)}
	p := envParser{lookup: lookup, set: cfg.SetFields}

	p.int(EnvPort, "port", &cfg.Port)
	p.int(EnvSimmuratorPort, "port", &cfg.Port)
	p.string(EnvStaticDir, "staticDir", &cfg.StaticDir)
	p.int(EnvMaxLogEntries, "maxLogEntries", &cfg.MaxLogEntries)
	p.int(EnvMaxConnections, "maxConnections", &cfg.MaxConnections)
	p.string(EnvLogLevel, "logLevel", &cfg.LogLevel)
	p.string(EnvLogFormat, "logFormat", &cfg.LogFormat)
	p.string(EnvScheduler, "stream.scheduler", &cfg.Stream.Scheduler)
	p.float(EnvErrorRate, "simulation.errorRate", &cfg.Simulation.ErrorRate)
	p.float(EnvSlowRate, "simulation.slowRate", &cfg.Simulation.SlowRate)
	p.bool(EnvRateLimitEnabled, "rateLimit.enabled", &cfg.RateLimit.Enabled)
	p.float(EnvRateLimitRPS, "rateLimit.rps", &cfg.RateLimit.RPS)
	p.bool(EnvMQTTEnabled, "mqtt.enabled", &cfg.MQTT.Enabled)
	p.int(EnvMQTTPort, "mqtt.port", &cfg.MQTT.Port)
	p.string(EnvMQTTAccessTopic, "mqtt.accessTopic", &cfg.MQTT.AccessTopic)
	p.int(EnvMQTTPublishPeriod, "mqtt.publishIntervalMs", &cfg.MQTT.PublishIntervalMs)

	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// envParser reads typed variables and keeps the first parse error.
type envParser struct {
	lookup func(string) (string, bool)
	set    map[string]bool
	err    error
}

func (p *envParser) get(name string) (string, bool) {
	v, ok := p.lookup(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *envParser) fail(name, value, want string) {
	if p.err == nil {
		p.err = &ConfigError{Path: "$" + name, Message: strconv.Quote(value) + " is not " + want}
	}
}

func (p *envParser) string(name, key string, dst *string) {
	if v, ok := p.get(name); ok {
		*dst = v
		p.set[key] = true
	}
}

func (p *envParser) int(name, key string, dst *int) {
	v, ok := p.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v, "an integer")
		return
	}
	*dst = n
	p.set[key] = true
}

func (p *envParser) float(name, key string, dst *float64) {
	v, ok := p.get(name)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(name, v, "a number")
		return
	}
	*dst = f
	p.set[key] = true
}

func (p *envParser) bool(name, key string, dst *bool) {
	v, ok := p.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, v, "a boolean")
		return
	}
	*dst = b
	p.set[key] = true
}
