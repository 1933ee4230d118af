package engine

import (
	"net/http"

	"github.com/simmurator/simmurator/pkg/metrics"
	"github.com/simmurator/simmurator/pkg/ratelimit"
)

// routes builds the mux and wraps it, outermost first, in CORS, metrics
// and the access log.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	api := ratelimit.Middleware(s.limiter)

	mux.Handle("GET /events", s.sse)
	mux.Handle("GET /ws/sensors", s.ws)

	mux.Handle("GET /api/v1/endpoints", api(http.HandlerFunc(s.handleEndpoints)))
	mux.Handle("GET /api/v1/sensors", api(http.HandlerFunc(s.handleSensors)))
	mux.Handle("GET /api/v1/sensors/{key}", api(http.HandlerFunc(s.handleSensor)))
	mux.Handle("GET /api/v1/access-log", api(http.HandlerFunc(s.handleAccessLog)))
	mux.Handle("GET /api/v1/stats", api(http.HandlerFunc(s.handleStats)))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	if static := newStaticHandler(s.cfg.StaticDir); static != nil {
		mux.Handle(staticPattern, static)
	} else {
		s.log.Debug("static directory not found, dashboard disabled", "dir", s.cfg.StaticDir)
	}

	return CORSMiddleware(MetricsMiddleware(AccessLogMiddleware(s.store, mux)))
}
