// Package sse serves the live access-log feed as Server-Sent Events.
//
// Each client gets a bounded Sink attached to the broadcast hub. The handler
// drains the sink into the response, emitting a keepalive comment while the
// feed is idle.
package sse
