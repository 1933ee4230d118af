package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/simmurator/simmurator/pkg/cli/internal/output"
	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/spf13/cobra"
)

var (
	logsLimit  int
	logsFilter string
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the access log of a running server",
	Long: `Show recent access-log entries, newest first. With --follow the command
streams new entries from /events as they are recorded.

Filters are expressions over the entry fields: id, timestamp, ip,
userAgent, endpoint, method, statusCode, responseTime and deviceId.`,
	Example: `  # Show the 20 most recent entries
  simmurator logs

  # Only failed requests
  simmurator logs --filter 'statusCode >= 400'

  # Stream slow requests as they happen
  simmurator logs -f --filter 'responseTime > 200'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(serverURL)
		out := cmd.OutOrStdout()

		if logsFollow {
			var filter *requestlog.Filter
			if logsFilter != "" {
				f, err := requestlog.CompileFilter(logsFilter)
				if err != nil {
					return fmt.Errorf("invalid filter: %w", err)
				}
				filter = f
			}
			return followLogs(cmd.Context(), client, filter, out)
		}

		page, err := client.AccessLog(cmd.Context(), logsLimit, logsFilter)
		if err != nil {
			return errors.New(FormatConnectionError(err))
		}
		return printResult(out, page, func() {
			if len(page.Entries) == 0 {
				fmt.Fprintln(out, "No access-log entries")
				return
			}
			_ = printLogTable(out, page.Entries)
		})
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "Number of entries to show")
	logsCmd.Flags().StringVar(&logsFilter, "filter", "", "Filter expression (e.g. 'method == \"GET\"')")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Stream entries in real time (like tail -f)")
	rootCmd.AddCommand(logsCmd)
}

func printLogTable(w io.Writer, entries []requestlog.Entry) error {
	tw := output.Table(w)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tMETHOD\tENDPOINT\tSTATUS\tDURATION\tIP")
	for _, e := range entries {
		fmt.Fprintln(tw, formatEntry(e, "\t"))
	}
	return tw.Flush()
}

func formatEntry(e requestlog.Entry, sep string) string {
	endpoint := e.Endpoint
	if len(endpoint) > 40 {
		endpoint = endpoint[:37] + "..."
	}
	return strings.Join([]string{
		fmt.Sprint(e.ID),
		e.Timestamp.Format("2006-01-02 15:04:05"),
		e.Method,
		endpoint,
		fmt.Sprint(e.StatusCode),
		fmt.Sprintf("%dms", e.ResponseTime),
		e.IP,
	}, sep)
}

// followLogs streams access events until ctx ends or the server closes
// the stream.
func followLogs(ctx context.Context, client *Client, filter *requestlog.Filter, w io.Writer) error {
	body, err := client.Stream(ctx)
	if err != nil {
		return errors.New(FormatConnectionError(err))
	}
	defer func() { _ = body.Close() }()

	if !jsonOutput {
		fmt.Fprintln(w, "Streaming access log (press Ctrl+C to stop)...")
	}

	err = readAccessEvents(body, func(e requestlog.Entry, raw []byte) {
		if filter != nil && !filter.Match(e) {
			return
		}
		if jsonOutput {
			fmt.Fprintln(w, string(raw))
			return
		}
		fmt.Fprintln(w, formatEntry(e, "  "))
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// readAccessEvents scans an SSE body and calls fn for each access event.
// Other frames, comments and malformed data are skipped.
func readAccessEvents(r io.Reader, fn func(e requestlog.Entry, raw []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil || ev.Type != requestlog.EventTypeAccess {
			continue
		}
		var entry requestlog.Entry
		if err := json.Unmarshal(ev.Data, &entry); err != nil {
			continue
		}
		fn(entry, ev.Data)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading stream: %w", err)
	}
	return nil
}
