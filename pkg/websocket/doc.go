// Package websocket serves the /ws/sensors streaming endpoint.
//
// Each upgraded connection is wrapped in a Connection and driven by a
// session.Session: the handler sends the welcome frame, then feeds every text
// frame the client sends into the session until the connection drops.
//
// Usage:
//
//	h := websocket.NewHandler(sensor.NewRegistry(),
//		websocket.WithScheduler(session.NewSharedScheduler()),
//		websocket.WithHeartbeat(30*time.Second),
//	)
//	mux.Handle("GET /ws/sensors", h)
package websocket
