// Package engine assembles the simmurator HTTP server: the sensor polling
// API, the access-log and stats queries, the SSE access stream, the
// WebSocket sensor stream and the static dashboard.
//
// Every request outside the internal routes passes through the access-log
// middleware, which records it into a requestlog.Store. The store forwards
// each entry to a hub.Hub that fans it out to /events subscribers.
package engine
