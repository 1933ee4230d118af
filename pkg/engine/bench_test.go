package engine

import (
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simmurator/simmurator/pkg/sensor"
)

func BenchmarkHTTP_SensorPoll(b *testing.B) {
	cfg := testConfig()
	srv := NewServer(cfg,
		WithProvider(sensor.NewRegistry(sensor.WithSeed(1))),
		WithSimulator(NewSimulator(cfg.Simulation, rand.New(rand.NewPCG(1, 1)))),
	)
	b.Cleanup(func() { _ = srv.Stop() })
	h := srv.Handler()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/temperature", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("status %d", rec.Code)
		}
	}
}

func BenchmarkHTTP_Stats(b *testing.B) {
	srv := NewServer(testConfig())
	b.Cleanup(func() { _ = srv.Stop() })
	h := srv.Handler()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	}
}
