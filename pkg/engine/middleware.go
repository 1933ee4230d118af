package engine

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/simmurator/simmurator/pkg/httputil"
	"github.com/simmurator/simmurator/pkg/metrics"
	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/simmurator/simmurator/pkg/websocket"
)

// Paths never written to the access log. Matching is by prefix.
var accessLogSkip = []string{
	"/api/v1/access-log",
	"/api/v1/stats",
	"/events",
	"/ws/",
	"/metrics",
	"/healthz",
}

// staticPattern is the catch-all route serving the dashboard.
const staticPattern = "/"

// responseRecorder wraps http.ResponseWriter to capture the status code.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (w *responseRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker if the underlying ResponseWriter supports it.
func (w *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("engine: response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	w.written = true
	return hj.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func skipAccessLog(path string) bool {
	for _, prefix := range accessLogSkip {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AccessLogMiddleware records every routed API request into rec once the
// handler returns. Internal routes, the dashboard and unmatched paths are
// not recorded.
func AccessLogMiddleware(rec requestlog.Recorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipAccessLog(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseRecorder(w)
		next.ServeHTTP(rw, r)

		// The mux fills in Pattern while routing.
		if r.Pattern == "" || r.Pattern == staticPattern {
			return
		}
		rec.Record(newEntry(r, rw.statusCode, start))
	})
}

func newEntry(r *http.Request, status int, start time.Time) requestlog.Entry {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		ua = "unknown"
	}
	var deviceID *string
	if v := r.Header.Get("X-Device-Id"); v != "" {
		deviceID = &v
	}
	now := time.Now()
	return requestlog.Entry{
		Timestamp:    now.UTC(),
		IP:           httputil.ClientIP(r, true),
		UserAgent:    ua,
		Endpoint:     r.URL.RequestURI(),
		Method:       r.Method,
		StatusCode:   status,
		ResponseTime: now.Sub(start).Milliseconds(),
		DeviceID:     deviceID,
	}
}

// MetricsMiddleware wraps an http.Handler to record Prometheus metrics.
// WebSocket upgrades pass through untouched; their lifetime is tracked by
// the active connection gauge instead.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseRecorder(w)
		next.ServeHTTP(rw, r)

		route := routeLabel(r)
		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel uses the matched mux pattern without its method so that
// path parameters do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// CORSMiddleware allows any origin, method and header. Preflight requests
// are answered here with 204.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "86400")
			httputil.WriteNoContent(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
