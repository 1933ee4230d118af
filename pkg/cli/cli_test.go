package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/simmurator/simmurator/pkg/cliconfig"
	"github.com/simmurator/simmurator/pkg/engine"
	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/simmurator/simmurator/pkg/sensor"
	"github.com/simmurator/simmurator/pkg/simtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setJSONOutput(t *testing.T, v bool) {
	t.Helper()
	old := jsonOutput
	jsonOutput = v
	t.Cleanup(func() { jsonOutput = old })
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestClient(t *testing.T) {
	sim := simtest.New(t)
	srv, base := sim.Engine(), sim.URL()
	client := NewClient(base + "/")
	ctx := context.Background()

	endpoints, err := client.Endpoints(ctx)
	require.NoError(t, err)
	require.Len(t, endpoints, len(srv.Provider().Names()))
	assert.Equal(t, "temperature", endpoints[0].Name)

	data, err := client.Sensor(ctx, "temperature", "")
	require.NoError(t, err)
	var reading sensor.Reading
	require.NoError(t, json.Unmarshal(data, &reading))
	assert.Equal(t, "TEMP-001", reading.SparkplugTopic.DeviceID)

	data, err = client.Sensor(ctx, "temperature", "$.unit.code")
	require.NoError(t, err)
	var matches []any
	require.NoError(t, json.Unmarshal(data, &matches))
	assert.Len(t, matches, 1)

	_, err = client.Sensor(ctx, "nope", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, engine.MsgSensorNotFound)

	require.Eventually(t, func() bool { return srv.Store().Len() >= 4 }, 2*time.Second, 10*time.Millisecond)

	page, err := client.AccessLog(ctx, 2, "")
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
	assert.GreaterOrEqual(t, page.Total, int64(4))

	page, err = client.AccessLog(ctx, 0, "statusCode == 404")
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "/api/v1/sensors/nope", page.Entries[0].Endpoint)

	_, err = client.AccessLog(ctx, 0, "statusCode ==")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)

	st, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st.TotalRequests, int64(4))
	assert.Contains(t, st.EndpointStats, "/api/v1/endpoints")

	h, err := client.Health(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, h.Timestamp)
}

func TestClient_Stream(t *testing.T) {
	base := simtest.New(t).URL()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body, err := NewClient(base).Stream(ctx)
	require.NoError(t, err)
	defer body.Close()

	line, err := bufio.NewReader(body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))
	assert.Contains(t, line, `"type":"connected"`)
}

func TestClient_ConnectionError(t *testing.T) {
	client := NewClient("http://127.0.0.1:" + strconv.Itoa(freePort(t)))
	_, err := client.Health(context.Background())
	require.Error(t, err)

	msg := FormatConnectionError(err)
	assert.Contains(t, msg, "cannot connect to server")
	assert.Contains(t, msg, "simmurator serve")
	assert.Equal(t, "plain", FormatConnectionError(&APIError{Message: "plain"}))
}

func TestReadAccessEvents(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"type":"connected","data":{"message":"SSE stream connected"}}`,
		``,
		`: keepalive`,
		``,
		`data: {"type":"access","data":{"id":1,"method":"GET","endpoint":"/api/v1/sensors","statusCode":200}}`,
		``,
		`data: not json`,
		``,
		`data: {"type":"access","data":{"id":2,"method":"GET","endpoint":"/api/v1/sensors/x","statusCode":404}}`,
		``,
	}, "\n")

	var got []requestlog.Entry
	err := readAccessEvents(strings.NewReader(stream), func(e requestlog.Entry, raw []byte) {
		got = append(got, e)
		assert.True(t, json.Valid(raw))
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.EqualValues(t, 1, got[0].ID)
	assert.Equal(t, 404, got[1].StatusCode)
}

func TestPrintLogTable(t *testing.T) {
	var buf bytes.Buffer
	entries := []requestlog.Entry{{
		ID:           3,
		Timestamp:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Method:       "GET",
		Endpoint:     "/api/v1/sensors/temperature?select=" + strings.Repeat("x", 40),
		StatusCode:   200,
		ResponseTime: 12,
		IP:           "10.0.0.1",
	}}
	require.NoError(t, printLogTable(&buf, entries))

	out := buf.String()
	assert.Contains(t, out, "ENDPOINT")
	assert.Contains(t, out, "2024-01-02 03:04:05")
	assert.Contains(t, out, "12ms")
	assert.Contains(t, out, "...")
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{base: "http://localhost:4040", want: "ws://localhost:4040/ws/sensors"},
		{base: "https://example.com/sim/", want: "wss://example.com/sim/ws/sensors"},
		{base: "ws://host:1?x=1", want: "ws://host:1/ws/sensors"},
		{base: "ftp://host", wantErr: true},
		{base: "://bad", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := socketURL(tt.base)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintFrame(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		json     bool
		wantData bool
		wantOut  string
		wantErr  string
	}{
		{
			name:     "data",
			frame:    `{"type":"data","sensor":"humidity","timestamp":"t0","data":{"value":{"humidity":40}}}`,
			wantData: true,
			wantOut:  `{"humidity":40}`,
		},
		{
			name:    "subscribed",
			frame:   `{"type":"subscribed","sensors":["a","b"],"interval":500,"unknown":["zz"]}`,
			wantOut: "subscribed to a, b every 500ms\nunknown sensors: zz",
		},
		{name: "welcome is quiet", frame: `{"type":"welcome","message":"hi"}`},
		{name: "error frame", frame: `{"type":"error","message":"Invalid JSON"}`, wantErr: "Invalid JSON"},
		{name: "malformed", frame: `{`, wantErr: "malformed frame"},
		{
			name:     "json passthrough",
			frame:    `{"type":"data","sensor":"ph-sensor"}`,
			json:     true,
			wantData: true,
			wantOut:  `{"type":"data","sensor":"ph-sensor"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setJSONOutput(t, tt.json)
			var buf bytes.Buffer
			isData, err := printFrame(&buf, []byte(tt.frame))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, isData)
			if tt.wantOut == "" {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), tt.wantOut)
			}
		})
	}
}

func TestWatchSensors(t *testing.T) {
	setJSONOutput(t, false)
	base := simtest.New(t).URL()
	target, err := socketURL(base)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var buf bytes.Buffer
	err = watchSensors(ctx, target, []string{"temperature", "bogus"}, 100, 2, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "subscribed to temperature every 100ms")
	assert.Contains(t, out, "unknown sensors: bogus")
	assert.Equal(t, 2, strings.Count(out, "  temperature"))
}

func TestServeFlagsConfig(t *testing.T) {
	f := serveFlags{port: 8080, errorRate: 0, mqtt: false, staticDir: "web"}
	changed := map[string]bool{"port": true, "error-rate": true, "mqtt": true}

	fc := f.config(func(name string) bool { return changed[name] })
	assert.Equal(t, map[string]bool{
		"port":                 true,
		"simulation.errorRate": true,
		"mqtt.enabled":         true,
	}, fc.SetFields)

	cfg := cliconfig.NewDefault()
	cfg.MQTT.Enabled = true
	cliconfig.MergeConfig(cfg, fc, cliconfig.SourceFlag)

	assert.Equal(t, 8080, cfg.Port)
	assert.Zero(t, cfg.Simulation.ErrorRate)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, cliconfig.DefaultStaticDir, cfg.StaticDir)
	assert.Equal(t, cliconfig.SourceFlag, cfg.Sources["simulation.errorRate"])
}

func TestServeFlagKeys_MatchFlags(t *testing.T) {
	for name := range serveFlagKeys {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
}

func TestRunServe(t *testing.T) {
	cfg := cliconfig.NewDefault()
	cfg.Port = freePort(t)
	cfg.StaticDir = filepath.Join(t.TempDir(), "missing")
	cfg.MQTT.Enabled = true
	cfg.MQTT.Port = freePort(t)
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, cfg, &out, &bytes.Buffer{})
	}()

	client := NewClient("http://127.0.0.1:" + strconv.Itoa(cfg.Port))
	require.Eventually(t, func() bool {
		_, err := client.Health(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("runServe did not return after cancel")
	}

	assert.Contains(t, out.String(), "Simmurator running on http://localhost:"+strconv.Itoa(cfg.Port))
	assert.Contains(t, out.String(), "MQTT:")
	assert.Contains(t, out.String(), "Server stopped")
}

func TestVersionInfo(t *testing.T) {
	info := currentBuildInfo()
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, info.Platform, "/")
}
