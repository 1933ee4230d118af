// Package id generates identifiers for live connections and hub subscribers.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// UUID returns a random version 4 UUID string.
func UUID() string {
	return uuid.NewString()
}

// Short returns an 8 character hex id taken from a random UUID.
// Short ids are only used for log correlation, so collisions are tolerable.
func Short() string {
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")[:8]
}

// Prefixed returns an id of the form "<prefix>-<short>", e.g. "ws-1f3a9c0d".
func Prefixed(prefix string) string {
	if prefix == "" {
		return Short()
	}
	return prefix + "-" + Short()
}
