package mqtt

import "time"

// Defaults for Config.
const (
	DefaultPort            = 1883
	DefaultPublishInterval = 5 * time.Second
	DefaultAccessTopic     = "simmurator/access"

	shutdownTimeout = 5 * time.Second
)

// Config configures a Bridge.
type Config struct {
	Port            int
	PublishInterval time.Duration
	AccessTopic     string
}

// DefaultConfig returns the bridge defaults.
func DefaultConfig() Config {
	return Config{
		Port:            DefaultPort,
		PublishInterval: DefaultPublishInterval,
		AccessTopic:     DefaultAccessTopic,
	}
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = DefaultPublishInterval
	}
	if c.AccessTopic == "" {
		c.AccessTopic = DefaultAccessTopic
	}
	return c
}
