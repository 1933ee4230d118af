package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/simmurator/simmurator/pkg/httputil"
	"golang.org/x/time/rate"
)

// Default per-IP limiter values.
const (
	DefaultRate            = 50
	DefaultCleanupInterval = 1 * time.Minute
	DefaultEntryTTL        = 3 * time.Minute
)

// PerIPConfig configures a PerIPLimiter.
type PerIPConfig struct {
	Rate            float64       // tokens per second
	Burst           int           // maximum bucket capacity
	TrustForwarded  bool          // key on the first X-Forwarded-For address when present
	CleanupInterval time.Duration // how often stale entries are cleaned up
	EntryTTL        time.Duration // how long an entry lives without activity
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerIPLimiter keeps one token bucket per client address.
type PerIPLimiter struct {
	limit           rate.Limit
	burst           int
	trustForwarded  bool
	cleanupInterval time.Duration
	entryTTL        time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewPerIPLimiter creates a new per-IP rate limiter with the given configuration.
// It starts a background goroutine for cleaning up stale entries.
func NewPerIPLimiter(cfg PerIPConfig) *PerIPLimiter {
	rps := cfg.Rate
	if rps <= 0 {
		rps = DefaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps * 2)
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	entryTTL := cfg.EntryTTL
	if entryTTL <= 0 {
		entryTTL = DefaultEntryTTL
	}

	rl := &PerIPLimiter{
		limit:           rate.Limit(rps),
		burst:           burst,
		trustForwarded:  cfg.TrustForwarded,
		cleanupInterval: cleanupInterval,
		entryTTL:        entryTTL,
		visitors:        make(map[string]*visitor),
		stopCh:          make(chan struct{}),
		stoppedCh:       make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Burst returns the burst size (maximum bucket capacity).
func (rl *PerIPLimiter) Burst() int {
	return rl.burst
}

// Allow reports whether a request from ip may proceed. When it may not,
// retryAfter is how long until a token frees up.
func (rl *PerIPLimiter) Allow(ip string) (allowed bool, retryAfter time.Duration) {
	now := time.Now()
	lim := rl.limiterFor(ip, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked addresses.
func (rl *PerIPLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

func (rl *PerIPLimiter) limiterFor(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// ClientIP extracts the key address from the request.
func (rl *PerIPLimiter) ClientIP(r *http.Request) string {
	return httputil.ClientIP(r, rl.trustForwarded)
}

// Stop stops the cleanup goroutine. Must be called when the limiter is no longer needed.
func (rl *PerIPLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	<-rl.stoppedCh
}

// cleanup periodically removes stale entries.
func (rl *PerIPLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	defer close(rl.stoppedCh)

	for {
		select {
		case now := <-ticker.C:
			rl.sweep(now)
		case <-rl.stopCh:
			return
		}
	}
}

// sweep drops visitors idle since before now minus the TTL.
func (rl *PerIPLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.entryTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}
