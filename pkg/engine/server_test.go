package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/simmurator/simmurator/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig disables the simulated latency and failures and the dashboard.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StaticDir = ""
	cfg.Simulation = SimulationConfig{}
	return cfg
}

type testServer struct {
	t   *testing.T
	srv *Server
	ts  *httptest.Server
}

func newTestServer(t *testing.T, cfg Config, opts ...ServerOption) *testServer {
	t.Helper()
	opts = append([]ServerOption{
		WithProvider(sensor.NewRegistry(sensor.WithSeed(1))),
		WithSimulator(NewSimulator(cfg.Simulation, rand.New(rand.NewPCG(1, 1)))),
	}, opts...)
	srv := NewServer(cfg, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Stop()
		ts.Close()
	})
	return &testServer{t: t, srv: srv, ts: ts}
}

func (s *testServer) do(method, path string, header http.Header) (*http.Response, map[string]any) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.ts.URL+path, nil)
	require.NoError(s.t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	var body map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func (s *testServer) get(path string) (*http.Response, map[string]any) {
	s.t.Helper()
	return s.do(http.MethodGet, path, nil)
}

// waitRecorded blocks until n entries have been issued. A client can read
// its response before the middleware records the request.
func (s *testServer) waitRecorded(n int64) {
	s.t.Helper()
	require.Eventually(s.t, func() bool {
		return s.srv.Store().TotalIssued() >= n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, body := s.get("/api/v1/endpoints")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	endpoints := body["endpoints"].([]any)
	require.Len(t, endpoints, 14)

	first := endpoints[0].(map[string]any)
	assert.Equal(t, "temperature", first["name"])
	assert.Equal(t, "/api/v1/sensors/temperature", first["url"])
	assert.Equal(t, "GET", first["method"])

	third := endpoints[2].(map[string]any)
	assert.Equal(t, "Returns simulated oil level sensor data", third["description"])
}

func TestSensors_All(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, body := s.get("/api/v1/sensors")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["timestamp"])

	data := body["data"].(map[string]any)
	assert.Len(t, data, 14)
	amr := data["amr"].(map[string]any)
	assert.Equal(t, "AMR-009", amr["sparkplugTopic"].(map[string]any)["deviceId"])
}

func TestSensor(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, body := s.get("/api/v1/sensors/humidity")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "ns=2;s=HUM-002", data["opcUa"].(map[string]any)["nodeId"])
}

func TestSensor_NotFound(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, body := s.get("/api/v1/sensors/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, map[string]any{"status": "error", "error": MsgSensorNotFound}, body)
}

func TestSensor_SimulatedFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.ErrorRate = 1
	s := newTestServer(t, cfg)

	for _, path := range []string{"/api/v1/sensors/temperature", "/api/v1/sensors/nope"} {
		resp, body := s.get(path)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, MsgSensorUnavailable, body["error"])
		assert.NotEmpty(t, body["timestamp"])
	}
}

func TestSensor_SimulatedLatency(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.FastMin = 30 * time.Millisecond
	cfg.Simulation.FastMax = 30 * time.Millisecond
	s := newTestServer(t, cfg)

	start := time.Now()
	resp, _ := s.get("/api/v1/sensors/vibration")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	s.waitRecorded(1)
	entry := s.srv.Store().Recent(1)[0]
	assert.GreaterOrEqual(t, entry.ResponseTime, int64(30))
}

func TestSensor_Select(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, body := s.get("/api/v1/sensors/temperature?select=$.sparkplugTopic.deviceId")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"TEMP-001"}, body["data"])

	resp, body = s.get("/api/v1/sensors/temperature?select=$.missing")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, body["data"])

	resp, body = s.get("/api/v1/sensors/temperature?select=$.value[")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Invalid select expression")
}

func TestAccessLog_RecordsRequests(t *testing.T) {
	s := newTestServer(t, testConfig())

	s.do(http.MethodGet, "/api/v1/sensors/ph-sensor?x=1", http.Header{
		"User-Agent":      {"probe/1.0"},
		"X-Device-Id":     {"edge-7"},
		"X-Forwarded-For": {"203.0.113.5, 10.0.0.1"},
	})
	s.get("/api/v1/sensors/nope")
	s.waitRecorded(2)

	resp, body := s.get("/api/v1/access-log")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total"])

	entries := body["entries"].([]any)
	require.Len(t, entries, 2)

	newest := entries[0].(map[string]any)
	assert.EqualValues(t, 2, newest["id"])
	assert.Equal(t, "/api/v1/sensors/nope", newest["endpoint"])
	assert.EqualValues(t, 404, newest["statusCode"])
	assert.Nil(t, newest["deviceId"])
	assert.Equal(t, "Go-http-client/1.1", newest["userAgent"])

	oldest := entries[1].(map[string]any)
	assert.EqualValues(t, 1, oldest["id"])
	assert.Equal(t, "/api/v1/sensors/ph-sensor?x=1", oldest["endpoint"])
	assert.Equal(t, "GET", oldest["method"])
	assert.Equal(t, "probe/1.0", oldest["userAgent"])
	assert.Equal(t, "edge-7", oldest["deviceId"])
	assert.Equal(t, "203.0.113.5", oldest["ip"])
	assert.EqualValues(t, 200, oldest["statusCode"])
}

func TestAccessLog_Limit(t *testing.T) {
	s := newTestServer(t, testConfig())
	for i := 0; i < 5; i++ {
		s.get("/api/v1/endpoints")
	}
	s.waitRecorded(5)

	tests := []struct {
		query string
		want  int
	}{
		{"", 5},
		{"?limit=2", 2},
		{"?limit=0", 0},
		{"?limit=abc", 5},
		{"?limit=-3", 5},
		{"?limit=100000", 5},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, body := s.get("/api/v1/access-log" + tt.query)
			assert.Len(t, body["entries"].([]any), tt.want)
			assert.EqualValues(t, 5, body["total"])
		})
	}
}

func TestAccessLog_Filter(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.get("/api/v1/sensors/temperature")
	s.get("/api/v1/sensors/nope")
	s.get("/api/v1/sensors/humidity")
	s.waitRecorded(3)

	_, body := s.get("/api/v1/access-log?filter=statusCode%20%3E%3D%20400")
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "/api/v1/sensors/nope", entries[0].(map[string]any)["endpoint"])

	resp, body := s.get("/api/v1/access-log?filter=statusCode%20%3E%3D")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Invalid filter")
}

func TestAccessLog_SkipsInternalRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	for _, path := range []string{
		"/api/v1/access-log",
		"/api/v1/stats",
		"/healthz",
		"/metrics",
		"/does-not-exist",
	} {
		s.get(path)
	}
	s.get("/api/v1/endpoints")
	s.waitRecorded(1)

	entries := s.srv.Store().Recent(10)
	require.Len(t, entries, 1)
	assert.Equal(t, "/api/v1/endpoints", entries[0].Endpoint)
}

func TestAccessLog_Capacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLogEntries = 3
	s := newTestServer(t, cfg)
	for i := 0; i < 5; i++ {
		s.get("/api/v1/endpoints")
	}
	s.waitRecorded(5)

	_, body := s.get("/api/v1/access-log?limit=50")
	entries := body["entries"].([]any)
	require.Len(t, entries, 3)
	assert.EqualValues(t, 5, entries[0].(map[string]any)["id"])
	assert.EqualValues(t, 3, entries[2].(map[string]any)["id"])
}

func TestStats(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.get("/api/v1/sensors/temperature")
	s.get("/api/v1/sensors/temperature")
	s.get("/api/v1/sensors/nope")
	s.waitRecorded(3)

	resp, body := s.get("/api/v1/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["totalRequests"])
	assert.EqualValues(t, 0, body["activeConnections"])

	stats := body["endpointStats"].(map[string]any)
	require.Len(t, stats, 2)
	temp := stats["/api/v1/sensors/temperature"].(map[string]any)
	assert.EqualValues(t, 2, temp["count"])
	assert.EqualValues(t, 0, temp["errors"])
	nope := stats["/api/v1/sensors/nope"].(map[string]any)
	assert.EqualValues(t, 1, nope["count"])
	assert.EqualValues(t, 1, nope["errors"])
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, _ := s.do(http.MethodOptions, "/api/v1/sensors/temperature", http.Header{
		"Origin":                        {"http://example.com"},
		"Access-Control-Request-Method": {"GET"},
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Headers"))

	resp, _ = s.get("/api/v1/endpoints")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	// Preflights are answered before the access log.
	s.waitRecorded(1)
	assert.Equal(t, 1, s.srv.Store().Len())
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	s := newTestServer(t, cfg)

	resp, _ := s.get("/api/v1/endpoints")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.get("/api/v1/endpoints")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, map[string]any{"status": "error", "error": "Rate limit exceeded"}, body)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Health is not behind the limiter.
	resp, _ = s.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.waitRecorded(2)
	assert.Equal(t, http.StatusTooManyRequests, s.srv.Store().Recent(1)[0].StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, body := s.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	s.get("/api/v1/endpoints")

	const want = `simmurator_http_requests_total{method="GET",route="/api/v1/endpoints",status="200"}`
	assert.Eventually(t, func() bool {
		resp, err := http.Get(s.ts.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(raw), want)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEvents_StreamsAccessEntries(t *testing.T) {
	s := newTestServer(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				lines <- strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	next := func() map[string]any {
		t.Helper()
		select {
		case line := <-lines:
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &m))
			return m
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return nil
		}
	}

	hello := next()
	assert.Equal(t, "connected", hello["type"])
	require.Eventually(t, func() bool { return s.srv.Hub().Count() == 1 }, time.Second, 5*time.Millisecond)

	s.get("/api/v1/sensors/gas-detector")
	event := next()
	assert.Equal(t, "access", event["type"])
	data := event["data"].(map[string]any)
	assert.Equal(t, "/api/v1/sensors/gas-detector", data["endpoint"])
	assert.EqualValues(t, 1, data["id"])

	_, stats := s.get("/api/v1/stats")
	assert.EqualValues(t, 1, stats["activeConnections"])

	cancel()
	require.Eventually(t, func() bool { return s.srv.Hub().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRoute(t *testing.T) {
	s := newTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(s.ts.URL, "http")+"/ws/sensors", nil)
	require.NoError(t, err)
	defer c.CloseNow()

	read := func() map[string]any {
		t.Helper()
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	welcome := read()
	assert.Equal(t, "welcome", welcome["type"])
	assert.Len(t, welcome["availableSensors"], 14)

	require.NoError(t, c.Write(ctx, ws.MessageText, []byte(`{"action":"subscribe","sensors":["pressure"],"interval":100}`)))
	sub := read()
	assert.Equal(t, "subscribed", sub["type"])
	assert.EqualValues(t, 100, sub["interval"])

	data := read()
	assert.Equal(t, "data", data["type"])
	assert.Equal(t, "pressure", data["sensor"])

	// Socket traffic is not access-logged.
	assert.Equal(t, int64(0), s.srv.Store().TotalIssued())
}

func TestStaticDashboard(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dash</html>"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o600))

	cfg := testConfig()
	cfg.StaticDir = dir
	s := newTestServer(t, cfg)

	body := func(path string) string {
		t.Helper()
		resp, err := http.Get(s.ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(raw)
	}

	assert.Equal(t, "console.log(1)", body("/assets/app.js"))
	assert.Equal(t, "<html>dash</html>", body("/"))
	assert.Equal(t, "<html>dash</html>", body("/dashboard/live"))
	assert.Equal(t, "<html>dash</html>", body("/assets"))

	// The dashboard is not access-logged.
	s.get("/api/v1/endpoints")
	s.waitRecorded(1)
	assert.Equal(t, 1, s.srv.Store().Len())
}

func TestStaticDashboard_MissingDir(t *testing.T) {
	assert.Nil(t, newStaticHandler(filepath.Join(t.TempDir(), "missing")))
	assert.Nil(t, newStaticHandler(""))
}

func TestServer_StartStop(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 0
	srv := NewServer(cfg)

	require.NoError(t, srv.Start())
	assert.True(t, srv.IsRunning())
	assert.Error(t, srv.Start())

	_, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)

	resp, err := http.Get("http://127.0.0.1:" + port + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Greater(t, srv.Uptime(), time.Duration(0))

	// An open event stream must not hold up shutdown.
	stream, err := http.Get("http://127.0.0.1:" + port + "/events")
	require.NoError(t, err)
	defer stream.Body.Close()

	done := make(chan error, 1)
	go func() { done <- srv.Stop() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Stop blocked on the event stream")
	}
	assert.False(t, srv.IsRunning())
	assert.Empty(t, srv.Addr())
	assert.Zero(t, srv.Uptime())
	assert.NoError(t, srv.Stop())
}

func TestServer_MaxConnections(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 0
	cfg.MaxConnections = 1
	srv := NewServer(cfg)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	_, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	base := "http://127.0.0.1:" + port

	client := &http.Client{
		Timeout:   300 * time.Millisecond,
		Transport: &http.Transport{DisableKeepAlives: true},
	}

	stream, err := http.Get(base + "/events")
	require.NoError(t, err)

	_, err = client.Get(base + "/healthz")
	assert.Error(t, err, "second connection must wait for a free slot")

	stream.Body.Close()
	assert.Eventually(t, func() bool {
		resp, err := client.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
}

func TestServer_Run(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 0
	cfg.Stream.Scheduler = "shared"
	srv := NewServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, srv.IsRunning, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}
