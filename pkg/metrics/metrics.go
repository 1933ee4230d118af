package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "simmurator"

// Protocol label values for ActiveConnections.
const (
	ProtocolSSE       = "sse"
	ProtocolWebSocket = "websocket"
	ProtocolMQTT      = "mqtt"
)

// Outcome label values for StreamFrames.
const (
	OutcomeSent    = "sent"
	OutcomeDropped = "dropped"
)

var (
	// RequestsTotal counts HTTP requests.
	// Labels: method, route, status
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP handler latency.
	// Labels: method, route
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// ActiveConnections tracks long-lived connections.
	// Labels: protocol (sse, websocket, mqtt)
	ActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of open streaming connections",
		},
		[]string{"protocol"},
	)

	// StreamFrames counts session push frames.
	// Labels: outcome (sent, dropped)
	StreamFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_total",
			Help:      "Sensor data frames pushed to socket sessions",
		},
		[]string{"outcome"},
	)

	// HubBroadcasts counts messages fanned out by the broadcast hub.
	HubBroadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Messages broadcast to hub subscribers",
		},
	)

	// HubPruned counts subscribers removed after a failed write.
	HubPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "pruned_total",
			Help:      "Hub subscribers removed after a failed write",
		},
	)

	// AccessLogEntries is the current number of retained access-log entries.
	AccessLogEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "access_log",
			Name:      "entries",
			Help:      "Access log entries currently retained",
		},
	)

	// MQTTPublished counts messages published by the MQTT bridge.
	// Labels: kind (reading, access)
	MQTTPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "published_total",
			Help:      "Messages published to the embedded MQTT broker",
		},
		[]string{"kind"},
	)

	registry *prometheus.Registry
	initOnce sync.Once
)

// Init registers the default metrics plus Go runtime and process collectors
// on a private registry and returns it. Safe to call more than once.
func Init() *prometheus.Registry {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			RequestsTotal,
			RequestDuration,
			ActiveConnections,
			StreamFrames,
			HubBroadcasts,
			HubPruned,
			AccessLogEntries,
			MQTTPublished,
		)
	})
	return registry
}

// Handler returns the /metrics handler for the default registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Init(), promhttp.HandlerOpts{})
}
