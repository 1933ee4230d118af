package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/simmurator/simmurator/pkg/cliconfig"
	"github.com/simmurator/simmurator/pkg/engine"
	"github.com/simmurator/simmurator/pkg/logging"
	"github.com/simmurator/simmurator/pkg/mqtt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

// serveFlags holds the serve command's flags. Only flags the user
// changed override the loaded configuration.
type serveFlags struct {
	port          int
	staticDir     string
	maxLogEntries int
	maxConns      int
	logLevel      string
	logFormat     string

	interval  int64
	scheduler string

	errorRate float64
	slowRate  float64

	rateLimit      bool
	rateLimitRPS   float64
	rateLimitBurst int

	mqtt         bool
	mqttPort     int
	mqttInterval int
	mqttTopic    string
}

// serveFlagKeys maps flag names to config keys.
var serveFlagKeys = map[string]string{
	"port":             "port",
	"static-dir":       "staticDir",
	"max-log-entries":  "maxLogEntries",
	"max-connections":  "maxConnections",
	"log-level":        "logLevel",
	"log-format":       "logFormat",
	"interval":         "stream.defaultIntervalMs",
	"scheduler":        "stream.scheduler",
	"error-rate":       "simulation.errorRate",
	"slow-rate":        "simulation.slowRate",
	"rate-limit":       "rateLimit.enabled",
	"rate-limit-rps":   "rateLimit.rps",
	"rate-limit-burst": "rateLimit.burst",
	"mqtt":             "mqtt.enabled",
	"mqtt-port":        "mqtt.port",
	"mqtt-interval":    "mqtt.publishIntervalMs",
	"mqtt-topic":       "mqtt.accessTopic",
}

// serveCmd runs the telemetry server in the foreground.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the telemetry server (foreground)",
	Long: `Start the telemetry server. It serves the REST API under /api/v1, the
access-log event stream on /events, sensor subscriptions on /ws/sensors,
Prometheus metrics on /metrics and the dashboard from --static-dir.

With --mqtt an embedded MQTT broker is started as well. It publishes
every sensor reading on its Sparkplug topic at a fixed interval and
mirrors the access log to the access topic.`,
	Example: `  # Start with defaults on port 4040
  simmurator serve

  # Custom port, faster streams and no simulated failures
  simmurator serve --port 8080 --interval 250 --error-rate 0

  # Enable the MQTT bridge and JSON logs
  simmurator serve --mqtt --log-format json

  # Use a specific config file
  simmurator serve --config ./simmurator.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd.Flags().Changed)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg, cmd.OutOrStdout(), os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	fl := serveCmd.Flags()

	fl.IntVarP(&f.port, "port", "p", cliconfig.DefaultPort, "HTTP server port")
	fl.StringVar(&f.staticDir, "static-dir", cliconfig.DefaultStaticDir, "Directory of the dashboard build")
	fl.IntVar(&f.maxLogEntries, "max-log-entries", cliconfig.DefaultMaxLogEntries, "Access log capacity")
	fl.IntVar(&f.maxConns, "max-connections", 0, "Maximum concurrent HTTP connections (0 = unlimited)")
	fl.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fl.StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")

	fl.Int64Var(&f.interval, "interval", cliconfig.DefaultIntervalMs, "Default WebSocket push interval in milliseconds")
	fl.StringVar(&f.scheduler, "scheduler", cliconfig.DefaultScheduler, "Push scheduler (timer, shared)")

	fl.Float64Var(&f.errorRate, "error-rate", cliconfig.DefaultErrorRate, "Fraction of sensor polls that fail (0.0-1.0)")
	fl.Float64Var(&f.slowRate, "slow-rate", cliconfig.DefaultSlowRate, "Fraction of sensor polls that are slow (0.0-1.0)")

	fl.BoolVar(&f.rateLimit, "rate-limit", false, "Limit /api/v1 requests per client IP")
	fl.Float64Var(&f.rateLimitRPS, "rate-limit-rps", 0, "Requests per second per client (default 50)")
	fl.IntVar(&f.rateLimitBurst, "rate-limit-burst", 0, "Burst size per client (default 2x rps)")

	fl.BoolVar(&f.mqtt, "mqtt", false, "Start the embedded MQTT bridge")
	fl.IntVar(&f.mqttPort, "mqtt-port", cliconfig.DefaultMQTTPort, "MQTT broker port")
	fl.IntVar(&f.mqttInterval, "mqtt-interval", cliconfig.DefaultPublishIntervalMs, "MQTT publish interval in milliseconds")
	fl.StringVar(&f.mqttTopic, "mqtt-topic", cliconfig.DefaultAccessTopic, "MQTT topic for access-log events")
}

// config returns a Config carrying only the changed flags.
func (f *serveFlags) config(changed func(string) bool) *cliconfig.Config {
	cfg := &cliconfig.Config{
		Port:           f.port,
		StaticDir:      f.staticDir,
		MaxLogEntries:  f.maxLogEntries,
		MaxConnections: f.maxConns,
		LogLevel:       f.logLevel,
		LogFormat:      f.logFormat,
		Stream: cliconfig.StreamConfig{
			DefaultIntervalMs: f.interval,
			Scheduler:         f.scheduler,
		},
		Simulation: cliconfig.SimulationConfig{
			ErrorRate: f.errorRate,
			SlowRate:  f.slowRate,
		},
		RateLimit: cliconfig.RateLimitConfig{
			Enabled: f.rateLimit,
			RPS:     f.rateLimitRPS,
			Burst:   f.rateLimitBurst,
		},
		MQTT: cliconfig.MQTTConfig{
			Enabled:           f.mqtt,
			Port:              f.mqttPort,
			PublishIntervalMs: f.mqttInterval,
			AccessTopic:       f.mqttTopic,
		},
		SetFields: make(map[string]bool),
	}
	for flag, key := range serveFlagKeys {
		if changed(flag) {
			cfg.SetFields[key] = true
		}
	}
	return cfg
}

// loadServeConfig merges files, env and changed flags, then validates.
func loadServeConfig(changed func(string) bool) (*cliconfig.Config, error) {
	cfg, err := cliconfig.LoadAll(configPath)
	if err != nil {
		return nil, err
	}
	cliconfig.MergeConfig(cfg, serveFlagVals.config(changed), cliconfig.SourceFlag)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runServe runs the server, and the MQTT bridge when enabled, until ctx
// is cancelled or either fails.
func runServe(ctx context.Context, cfg *cliconfig.Config, out, logOut io.Writer) error {
	log := cfg.Logger(logOut)
	slog.SetDefault(log)

	srv := engine.NewServer(cfg.EngineConfig(), engine.WithLogger(log))

	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled {
		var err error
		bridge, err = mqtt.NewBridge(cfg.BridgeConfig(), srv.Provider(), srv.Scheduler(), srv.Hub(), logging.Component(log, "mqtt"))
		if err != nil {
			return fmt.Errorf("creating mqtt bridge: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(ctx)
		})
	}

	printServeStartupMessage(out, cfg)
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Server stopped")
	return nil
}

func printServeStartupMessage(w io.Writer, cfg *cliconfig.Config) {
	base := fmt.Sprintf("http://localhost:%d", cfg.Port)
	fmt.Fprintf(w, "Simmurator running on %s\n", base)
	fmt.Fprintf(w, "  REST API:   %s/api/v1/endpoints\n", base)
	fmt.Fprintf(w, "  Events:     %s/events\n", base)
	fmt.Fprintf(w, "  WebSocket:  ws://localhost:%d/ws/sensors\n", cfg.Port)
	if cfg.MQTT.Enabled {
		fmt.Fprintf(w, "  MQTT:       mqtt://localhost:%d\n", cfg.MQTT.Port)
	}
	fmt.Fprintln(w, "Press Ctrl+C to stop")
}
