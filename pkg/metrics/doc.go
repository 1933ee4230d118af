// Package metrics exposes Prometheus metrics for the HTTP API, the streaming
// channels and the MQTT bridge.
//
// Metrics are package-level collectors so hot paths can update them without
// plumbing. They are usable before Init; Init only registers them, together
// with the Go runtime and process collectors, on a private registry that
// Handler serves:
//
//	mux.Handle("GET /metrics", metrics.Handler())
//
//	metrics.ActiveConnections.WithLabelValues(metrics.ProtocolSSE).Inc()
//	metrics.StreamFrames.WithLabelValues(metrics.OutcomeSent).Inc()
package metrics
