package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/simmurator/simmurator/pkg/engine"
	"github.com/simmurator/simmurator/pkg/requestlog"
)

// EnvServerURL overrides the default --url of client commands.
const EnvServerURL = "SIMMURATOR_URL"

const (
	clientTimeout  = 30 * time.Second
	errCodeConnect = "connection_error"
)

func defaultServerURL() string {
	if u := os.Getenv(EnvServerURL); u != "" {
		return u
	}
	return "http://localhost:" + strconv.Itoa(engine.DefaultPort)
}

// APIError is a failed call to a running server.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// FormatConnectionError returns a user-friendly message for errors that
// mean the server could not be reached.
func FormatConnectionError(err error) string {
	if apiErr, ok := err.(*APIError); ok && apiErr.ErrorCode == errCodeConnect {
		return fmt.Sprintf(`%s

Suggestions:
  • Start the server: simmurator serve
  • Check if the server is running on the expected port
  • Pass the server address with --url or %s`, apiErr.Message, EnvServerURL)
	}
	return err.Error()
}

// Client reads from a running server's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL
// (e.g. "http://localhost:4040").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: clientTimeout},
	}
}

// AccessLogPage is the body of GET /api/v1/access-log.
type AccessLogPage struct {
	Total   int64              `json:"total"`
	Entries []requestlog.Entry `json:"entries"`
}

// Health is the body of GET /healthz.
type Health struct {
	Timestamp string `json:"timestamp"`
	Uptime    int64  `json:"uptime"`
}

// Endpoints lists the sensor endpoints the server offers.
func (c *Client) Endpoints(ctx context.Context) ([]engine.EndpointInfo, error) {
	var result struct {
		Endpoints []engine.EndpointInfo `json:"endpoints"`
	}
	if err := c.getJSON(ctx, "/api/v1/endpoints", nil, &result); err != nil {
		return nil, err
	}
	return result.Endpoints, nil
}

// Sensor fetches one reading. It is subject to the server's simulated
// latency and failures.
func (c *Client) Sensor(ctx context.Context, key, selectExpr string) (json.RawMessage, error) {
	var q url.Values
	if selectExpr != "" {
		q = url.Values{"select": {selectExpr}}
	}
	var result struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/v1/sensors/"+url.PathEscape(key), q, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// AccessLog returns up to limit recent entries matching filter.
// A limit of 0 uses the server default.
func (c *Client) AccessLog(ctx context.Context, limit int, filter string) (*AccessLogPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if filter != "" {
		q.Set("filter", filter)
	}
	var page AccessLogPage
	if err := c.getJSON(ctx, "/api/v1/access-log", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Stats returns aggregate request statistics.
func (c *Client) Stats(ctx context.Context) (*requestlog.Stats, error) {
	var st requestlog.Stats
	if err := c.getJSON(ctx, "/api/v1/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.getJSON(ctx, "/healthz", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Stream opens the server's SSE stream. The caller closes the body.
func (c *Client) Stream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// no timeout: the stream lives until ctx ends
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, c.connectError(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, c.parseError(resp)
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.connectError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) connectError(err error) error {
	return &APIError{
		ErrorCode: errCodeConnect,
		Message:   fmt.Sprintf("cannot connect to server at %s: %v", c.baseURL, err),
	}
}

func (c *Client) parseError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(data))
	}
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		ErrorCode:  strconv.Itoa(resp.StatusCode),
		Message:    fmt.Sprintf("server returned %d: %s", resp.StatusCode, body.Message),
	}
}
