package cli

import (
	"fmt"

	"github.com/simmurator/simmurator/pkg/cli/internal/output"
	"github.com/simmurator/simmurator/pkg/cliconfig"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and where each value came from",
	Long: `Show the configuration serve would run with, after merging defaults, the
global and local config files, and environment variables. Flags passed to
serve are not included.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg, err := cliconfig.LoadAll(configPath)
		if err != nil {
			return err
		}
		entries := cfg.Entries()
		return printResult(out, entries, func() {
			tw := output.Table(out)
			fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%v\t%s\n", e.Key, e.Value, e.Source)
			}
			_ = tw.Flush()
			if err := cfg.Validate(); err != nil {
				output.Warn(cmd.ErrOrStderr(), "configuration is invalid: %v", err)
			}
		})
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a config file without starting the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileCfg, err := cliconfig.LoadConfigFile(args[0])
		if err != nil {
			return err
		}
		cfg := cliconfig.NewDefault()
		cliconfig.MergeConfig(cfg, fileCfg, cliconfig.SourceFile)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		out := cmd.OutOrStdout()
		return printResult(out, map[string]any{"valid": true, "file": args[0]}, func() {
			fmt.Fprintf(out, "%s is valid\n", args[0])
		})
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
