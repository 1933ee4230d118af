package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/simmurator/simmurator/pkg/cli/internal/output"
	"github.com/simmurator/simmurator/pkg/engine"
	"github.com/spf13/cobra"
)

var sensorsMatch []string

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "List the sensors of a running server",
	Example: `  simmurator sensors
  simmurator sensors --match 'oil-*' --match '*-meter'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		endpoints, err := NewClient(serverURL).Endpoints(cmd.Context())
		if err != nil {
			return errors.New(FormatConnectionError(err))
		}
		if len(sensorsMatch) > 0 {
			if endpoints, err = filterEndpoints(endpoints, sensorsMatch); err != nil {
				return err
			}
		}
		return printResult(out, endpoints, func() {
			printEndpoints(out, endpoints)
		})
	},
}

func printEndpoints(w io.Writer, endpoints []engine.EndpointInfo) {
	tw := output.Table(w)
	fmt.Fprintln(tw, "NAME\tTITLE\tMETHOD\tURL")
	for _, e := range endpoints {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, sensorTitle(e.Name), e.Method, e.URL)
	}
	_ = tw.Flush()
}

func endpointNames(endpoints []engine.EndpointInfo) []string {
	names := make([]string, len(endpoints))
	for i, e := range endpoints {
		names[i] = e.Name
	}
	return names
}

// filterEndpoints keeps the endpoints whose names match any pattern. A
// plain name matches as a substring.
func filterEndpoints(endpoints []engine.EndpointInfo, patterns []string) ([]engine.EndpointInfo, error) {
	globs := make([]string, len(patterns))
	for i, p := range patterns {
		if !hasMeta(p) {
			p = "*" + p + "*"
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid sensor pattern %q", p)
		}
		globs[i] = p
	}

	out := make([]engine.EndpointInfo, 0, len(endpoints))
	for _, e := range endpoints {
		for _, g := range globs {
			if ok, _ := doublestar.Match(g, e.Name); ok {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

var sensorSelect string

var sensorGetCmd = &cobra.Command{
	Use:   "get <sensor>",
	Short: "Fetch one reading, with simulated latency and failures",
	Example: `  simmurator sensors get temperature
  simmurator sensors get pressure --select '$.value.pressure'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := NewClient(serverURL).Sensor(cmd.Context(), args[0], sensorSelect)
		if err != nil {
			return errors.New(FormatConnectionError(err))
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("failed to format reading: %w", err)
		}
		buf.WriteByte('\n')
		_, err = buf.WriteTo(cmd.OutOrStdout())
		return err
	},
}

func init() {
	sensorsCmd.Flags().StringArrayVar(&sensorsMatch, "match", nil, "Only list sensors matching a name or glob pattern (repeatable)")
	sensorGetCmd.Flags().StringVar(&sensorSelect, "select", "", "JSONPath expression applied to the reading")
	sensorsCmd.AddCommand(sensorGetCmd)
	rootCmd.AddCommand(sensorsCmd)
}
