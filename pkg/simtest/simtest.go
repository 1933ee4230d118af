package simtest

import (
	"math/rand/v2"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/simmurator/simmurator/pkg/engine"
	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/simmurator/simmurator/pkg/sensor"
)

// DefaultSeed seeds sensor values and the simulator unless WithSeed is used.
const DefaultSeed = 1

const waitTimeout = 2 * time.Second

// Server is a running simmurator server for tests. It is stopped when the
// test completes.
type Server struct {
	srv     *engine.Server
	httpSrv *httptest.Server
}

type options struct {
	cfg  engine.Config
	seed uint64
}

// Option configures a test server.
type Option func(*options)

// WithConfig adjusts the engine configuration before the server starts.
func WithConfig(fn func(cfg *engine.Config)) Option {
	return func(o *options) { fn(&o.cfg) }
}

// WithSeed fixes the random source for sensor values and simulation.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithErrorRate makes the given fraction of sensor polls fail with 500.
func WithErrorRate(rate float64) Option {
	return func(o *options) { o.cfg.Simulation.ErrorRate = rate }
}

// New starts a server on a random local port.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	o := options{cfg: engine.DefaultConfig(), seed: DefaultSeed}
	o.cfg.StaticDir = filepath.Join(t.TempDir(), "dist")
	o.cfg.Simulation = engine.SimulationConfig{}
	for _, opt := range opts {
		opt(&o)
	}

	srv := engine.NewServer(o.cfg,
		engine.WithProvider(sensor.NewRegistry(sensor.WithSeed(o.seed))),
		engine.WithSimulator(engine.NewSimulator(o.cfg.Simulation, rand.New(rand.NewPCG(o.seed, o.seed)))),
	)
	s := &Server{srv: srv, httpSrv: httptest.NewServer(srv.Handler())}
	t.Cleanup(s.Close)
	return s
}

// URL returns the base URL, e.g. http://127.0.0.1:51234.
func (s *Server) URL() string {
	return s.httpSrv.URL
}

// Engine returns the underlying server.
func (s *Server) Engine() *engine.Server {
	return s.srv
}

// Close stops the server. Open sockets are closed first so that the HTTP
// server can drain.
func (s *Server) Close() {
	_ = s.srv.Stop()
	s.httpSrv.Close()
}

// Entries returns the retained access-log entries, newest first.
func (s *Server) Entries() []requestlog.Entry {
	return s.srv.Store().Recent(s.srv.Store().Capacity())
}

// WaitRecorded blocks until at least n requests have been recorded. An
// entry is recorded after its handler returns, so a client can see the
// response slightly earlier.
func (s *Server) WaitRecorded(t testing.TB, n int64) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for s.srv.Store().TotalIssued() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d recorded requests, have %d", n, s.srv.Store().TotalIssued())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// CallCount returns how many retained entries match method and endpoint.
// The endpoint includes the query string, as recorded.
func (s *Server) CallCount(method, endpoint string) int {
	n := 0
	for _, e := range s.Entries() {
		if e.Method == method && e.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// AssertCalled fails the test unless a matching request was recorded
// within the wait timeout.
func (s *Server) AssertCalled(t testing.TB, method, endpoint string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for s.CallCount(method, endpoint) == 0 {
		if time.Now().After(deadline) {
			t.Errorf("expected %s %s to be called, but it was not", method, endpoint)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// AssertNotCalled fails the test if a matching request was recorded.
func (s *Server) AssertNotCalled(t testing.TB, method, endpoint string) {
	t.Helper()
	if n := s.CallCount(method, endpoint); n > 0 {
		t.Errorf("expected %s %s not to be called, but it was called %d times", method, endpoint, n)
	}
}

// AssertCallCount fails the test unless exactly n matching requests were
// recorded.
func (s *Server) AssertCallCount(t testing.TB, method, endpoint string, n int) {
	t.Helper()
	if got := s.CallCount(method, endpoint); got != n {
		t.Errorf("expected %s %s to be called %d times, got %d", method, endpoint, n, got)
	}
}
