package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/simmurator/simmurator/pkg/session"
	"github.com/spf13/cobra"
)

var (
	watchSensorNames []string
	watchInterval    int64
	watchCount       int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Subscribe to live sensor readings over WebSocket",
	Example: `  # Every sensor at the server's default interval
  simmurator watch

  # Two sensors every 250ms, stop after 10 readings
  simmurator watch --sensors temperature,humidity --interval 250 -n 10

  # Every oil sensor
  simmurator watch --sensors 'oil-*'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := socketURL(serverURL)
		if err != nil {
			return err
		}
		sensors := watchSensorNames
		if needsExpansion(sensors) {
			endpoints, err := NewClient(serverURL).Endpoints(cmd.Context())
			if err != nil {
				return errors.New(FormatConnectionError(err))
			}
			if sensors, err = expandSensors(sensors, endpointNames(endpoints)); err != nil {
				return err
			}
		}
		return watchSensors(cmd.Context(), target, sensors, watchInterval, watchCount, cmd.OutOrStdout())
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchSensorNames, "sensors", nil, "Sensors or glob patterns to subscribe to (default: all)")
	watchCmd.Flags().Int64Var(&watchInterval, "interval", 0, "Push interval in milliseconds (default: server setting)")
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "Number of readings to receive (0 = unlimited)")
	rootCmd.AddCommand(watchCmd)
}

// subscribeRequest is the subscribe action sent on connect.
type subscribeRequest struct {
	Action   string   `json:"action"`
	Sensors  []string `json:"sensors,omitempty"`
	Interval int64    `json:"interval,omitempty"`
}

// socketURL derives the sensor socket URL from the server's base URL.
func socketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/sensors"
	u.RawQuery = ""
	return u.String(), nil
}

// watchSensors subscribes and prints data frames until ctx ends, the
// server closes the socket or count readings have arrived.
func watchSensors(ctx context.Context, target string, sensors []string, interval int64, count int, w io.Writer) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: %w (HTTP %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	req := subscribeRequest{Action: session.ActionSubscribe, Sensors: sensors, Interval: interval}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("sending subscribe: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	received := 0
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		isData, err := printFrame(w, message)
		if err != nil {
			return err
		}
		if isData {
			received++
			if count > 0 && received >= count {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
		}
	}
}

// printFrame writes one server frame and reports whether it carried a
// reading.
func printFrame(w io.Writer, message []byte) (bool, error) {
	var frame struct {
		Type      string          `json:"type"`
		Sensor    string          `json:"sensor"`
		Sensors   []string        `json:"sensors"`
		Interval  int64           `json:"interval"`
		Unknown   []string        `json:"unknown"`
		Message   string          `json:"message"`
		Timestamp string          `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return false, fmt.Errorf("malformed frame: %w", err)
	}

	isData := frame.Type == session.TypeData
	if jsonOutput {
		_, err := fmt.Fprintln(w, string(message))
		return isData, err
	}

	switch frame.Type {
	case session.TypeData:
		var reading struct {
			Value map[string]any `json:"value"`
		}
		_ = json.Unmarshal(frame.Data, &reading)
		value, _ := json.Marshal(reading.Value)
		fmt.Fprintf(w, "%s  %-16s %s\n", frame.Timestamp, frame.Sensor, value)
	case session.TypeSubscribed:
		fmt.Fprintf(w, "subscribed to %s every %dms\n", strings.Join(frame.Sensors, ", "), frame.Interval)
		if len(frame.Unknown) > 0 {
			fmt.Fprintf(w, "unknown sensors: %s\n", strings.Join(frame.Unknown, ", "))
		}
	case session.TypeError:
		return false, errors.New(frame.Message)
	}
	return isData, nil
}
