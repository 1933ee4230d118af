package websocket

import "errors"

// Common errors for the websocket package.
var (
	// ErrConnectionClosed indicates the connection is closed.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrUpgradeRequired indicates a plain HTTP request hit a WebSocket route.
	ErrUpgradeRequired = errors.New("websocket upgrade required")
)
