package sse

import (
	"bytes"
	"strings"
)

// Encoder formats text/event-stream frames.
// See: https://html.spec.whatwg.org/multipage/server-sent-events.html
type Encoder struct{}

// NewEncoder creates a new SSE encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// FormatData frames payload as one event. Multi-line payloads become
// multiple data fields.
func (e *Encoder) FormatData(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(payload) + len(fieldData) + 2)

	for _, line := range bytes.Split(payload, []byte("\n")) {
		buf.WriteString(fieldData)
		buf.Write(line)
		buf.WriteByte('\n')
	}

	// End with blank line to dispatch the event
	buf.WriteByte('\n')
	return buf.Bytes()
}

// FormatComment formats a comment line (keepalive, etc).
// Comments start with : and are ignored by EventSource clients.
func (e *Encoder) FormatComment(comment string) string {
	var sb strings.Builder
	for _, line := range strings.Split(comment, "\n") {
		sb.WriteString(fieldComment)
		sb.WriteByte(' ')
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}

// FormatKeepalive returns a keepalive comment.
func (e *Encoder) FormatKeepalive() string {
	return ": keepalive\n\n"
}
