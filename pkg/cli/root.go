package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	configPath string
	serverURL  string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "simmurator",
	Short: "simmurator streams simulated industrial sensor telemetry",
	Long: `simmurator serves simulated IoT sensor readings over a JSON REST API,
Server-Sent Events and WebSocket subscriptions, with an optional MQTT
bridge. Every API request is recorded in an in-memory access log that can
be queried, filtered and followed live.

Configuration can be provided via flags, environment variables, or a
configuration file (.simmuratorrc.yaml in the current directory, or
$XDG_CONFIG_HOME/simmurator/config.yaml).`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command until it returns or the process is
// interrupted. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (default: .simmuratorrc.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServerURL(), "Base URL of a running server (env SIMMURATOR_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
