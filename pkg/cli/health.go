package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check if a simmurator server is healthy and reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		type healthResult struct {
			Status string `json:"status"`
			URL    string `json:"url"`
			Uptime int64  `json:"uptime,omitempty"`
			Error  string `json:"error,omitempty"`
		}

		h, err := NewClient(serverURL).Health(cmd.Context())
		if err != nil {
			result := healthResult{Status: "unhealthy", URL: serverURL, Error: err.Error()}
			_ = printResult(out, result, func() {
				fmt.Fprintf(os.Stderr, "unhealthy: %s\n", FormatConnectionError(err))
			})
			return errors.New("server is not healthy")
		}

		result := healthResult{Status: "healthy", URL: serverURL, Uptime: h.Uptime}
		return printResult(out, result, func() {
			fmt.Fprintf(out, "healthy (up %s)\n", time.Duration(h.Uptime)*time.Second)
		})
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
