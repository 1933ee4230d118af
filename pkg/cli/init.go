package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/simmurator/simmurator/pkg/cliconfig"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	initOutput   string
	initForce    bool
	initDefaults bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter .simmuratorrc.yaml",
	Long: `Create a starter config file in the current directory. In a terminal the
command asks a few questions first; use --defaults to skip them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(initOutput); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", initOutput)
		}

		answers := defaultInitAnswers()
		if !initDefaults && isTerminal() {
			if err := runInitForm(&answers); err != nil {
				return err
			}
		}

		cfg, err := starterConfig(answers)
		if err != nil {
			return err
		}
		data, err := renderStarterConfig(cfg)
		if err != nil {
			return err
		}
		if err := os.WriteFile(initOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", initOutput, err)
		}

		out := cmd.OutOrStdout()
		return printResult(out, map[string]any{"created": initOutput}, func() {
			fmt.Fprintf(out, "Created %s\n", initOutput)
			fmt.Fprintln(out, "Start the server with: simmurator serve")
		})
	},
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", cliconfig.LocalConfigFileNames[0], "File to write")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
	initCmd.Flags().BoolVarP(&initDefaults, "defaults", "y", false, "Write defaults without prompting")
	rootCmd.AddCommand(initCmd)
}

// initAnswers holds the form fields as entered.
type initAnswers struct {
	port      string
	scheduler string
	errorRate string
	logFormat string
	mqtt      bool
}

func defaultInitAnswers() initAnswers {
	return initAnswers{
		port:      strconv.Itoa(cliconfig.DefaultPort),
		scheduler: cliconfig.DefaultScheduler,
		errorRate: strconv.FormatFloat(cliconfig.DefaultErrorRate, 'f', -1, 64),
		logFormat: "text",
	}
}

func runInitForm(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Which port should the server listen on?").
				Value(&a.port).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 65535 {
						return errors.New("enter a port between 1 and 65535")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("How should WebSocket pushes be scheduled?").
				Options(
					huh.NewOption("One timer per session", "timer"),
					huh.NewOption("Shared ticker for all sessions", "shared"),
				).
				Value(&a.scheduler),
			huh.NewInput().
				Title("What fraction of sensor polls should fail? (0.0-1.0)").
				Value(&a.errorRate).
				Validate(func(s string) error {
					f, err := strconv.ParseFloat(s, 64)
					if err != nil || f < 0 || f > 1 {
						return errors.New("enter a number between 0 and 1")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Log format").
				Options(
					huh.NewOption("Text", "text"),
					huh.NewOption("JSON", "json"),
				).
				Value(&a.logFormat),
			huh.NewConfirm().
				Title("Start the embedded MQTT bridge?").
				Value(&a.mqtt),
		),
	)
	return form.Run()
}

// starterConfig applies answers to the defaults.
func starterConfig(a initAnswers) (*cliconfig.Config, error) {
	cfg := cliconfig.NewDefault()

	port, err := strconv.Atoi(a.port)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q", a.port)
	}
	rate, err := strconv.ParseFloat(a.errorRate, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid error rate %q", a.errorRate)
	}

	cfg.Port = port
	cfg.Stream.Scheduler = a.scheduler
	cfg.Simulation.ErrorRate = rate
	cfg.LogFormat = a.logFormat
	cfg.MQTT.Enabled = a.mqtt

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const starterHeader = `# simmurator configuration
# Precedence: flags > environment > this file > global config > defaults.
# Run 'simmurator config' to see the effective values.

`

func renderStarterConfig(cfg *cliconfig.Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return append([]byte(starterHeader), data...), nil
}

func isTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
