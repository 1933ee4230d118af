package requestlog

import "time"

// Entry is one completed HTTP request as seen by the access-log middleware.
// Entries are immutable once recorded; the store hands out copies.
type Entry struct {
	// ID is assigned by the store, starting at 1 and never reused.
	ID int64 `json:"id"`

	// Timestamp is when the request completed.
	Timestamp time.Time `json:"timestamp"`

	// IP is the first X-Forwarded-For hop, or the socket peer address.
	IP string `json:"ip"`

	// UserAgent defaults to "unknown" when the header is absent.
	UserAgent string `json:"userAgent"`

	// Endpoint is the full request URI (path plus raw query).
	Endpoint string `json:"endpoint"`

	Method string `json:"method"`

	StatusCode int `json:"statusCode"`

	// ResponseTime is the handler duration in whole milliseconds.
	ResponseTime int64 `json:"responseTime"`

	// DeviceID comes from the X-Device-Id header; nil when absent.
	DeviceID *string `json:"deviceId"`
}

// IsError reports whether the entry counts as an error in stats.
func (e Entry) IsError() bool {
	return e.StatusCode >= 400
}

// EventTypeAccess is the type of access-log stream frames.
const EventTypeAccess = "access"

// AccessEvent is the frame pushed to stream subscribers for each entry.
type AccessEvent struct {
	Type string `json:"type"`
	Data Entry  `json:"data"`
}

// NewAccessEvent wraps e in an "access" frame.
func NewAccessEvent(e Entry) AccessEvent {
	return AccessEvent{Type: EventTypeAccess, Data: e}
}
