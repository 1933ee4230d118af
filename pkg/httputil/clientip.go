package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address a request came from. When trustForwarded is
// set, the first non-empty X-Forwarded-For hop wins over the socket peer.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
