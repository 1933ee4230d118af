package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/simmurator/simmurator/pkg/cli/internal/output"
	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show request statistics of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		st, err := NewClient(serverURL).Stats(cmd.Context())
		if err != nil {
			return errors.New(FormatConnectionError(err))
		}
		return printResult(out, st, func() {
			_ = printStats(out, st)
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func printStats(w io.Writer, st *requestlog.Stats) error {
	fmt.Fprintf(w, "Total requests:     %d\n", st.TotalRequests)
	fmt.Fprintf(w, "Active connections: %d\n\n", st.ActiveConnections)

	endpoints := make([]string, 0, len(st.EndpointStats))
	for ep := range st.EndpointStats {
		endpoints = append(endpoints, ep)
	}
	slices.Sort(endpoints)

	tw := output.Table(w)
	fmt.Fprintln(tw, "ENDPOINT\tCOUNT\tERRORS\tAVG")
	for _, ep := range endpoints {
		s := st.EndpointStats[ep]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%dms\n", ep, s.Count, s.Errors, s.AvgResponseTime)
	}
	return tw.Flush()
}
