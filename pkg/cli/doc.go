// Package cli implements the simmurator command line: the serve command
// that runs the telemetry server, and client commands that read sensors,
// the access log and live streams from a running server.
package cli
