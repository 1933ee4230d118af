package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/simmurator/simmurator/pkg/httputil"
)

// ExceededMessage is the error text of a rejected request.
const ExceededMessage = "Rate limit exceeded"

// Middleware returns an HTTP middleware that enforces per-IP rate limiting.
// If limiter is nil, the middleware passes through without limiting.
func Middleware(limiter *PerIPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(limiter.ClientIP(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(retryAfter)))
			httputil.WriteTooManyRequests(w, ExceededMessage)
		})
	}
}

func retrySeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
