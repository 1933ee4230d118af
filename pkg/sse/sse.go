package sse

import (
	"errors"
	"time"
)

const (
	// ContentTypeEventStream is the MIME type for SSE responses
	ContentTypeEventStream = "text/event-stream"

	// DefaultKeepalive is how often an idle stream gets a comment line
	DefaultKeepalive = 15 * time.Second

	// DefaultBufferSize is the number of frames a subscriber may lag behind
	DefaultBufferSize = 64
)

// Event-stream field prefixes.
const (
	fieldData    = "data: "
	fieldComment = ":"
)

// Errors
var (
	// ErrStreamClosed indicates the stream has been closed
	ErrStreamClosed = errors.New("sse: stream closed")

	// ErrBufferFull indicates the subscriber fell too far behind
	ErrBufferFull = errors.New("sse: buffer full")
)
