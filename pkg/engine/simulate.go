package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Outcome is the simulated behavior of one sensor poll.
type Outcome struct {
	Delay time.Duration
	Fail  bool
}

// Simulator draws latency and failure outcomes for sensor polls.
// It is safe for concurrent use.
type Simulator struct {
	cfg SimulationConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a Simulator. A nil rng gets a randomly seeded one.
func NewSimulator(cfg SimulationConfig, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{cfg: cfg, rng: rng}
}

// Next draws the outcome of the next poll. The slow/fast draw happens
// before the failure draw.
func (s *Simulator) Next() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Outcome
	if s.rng.Float64() < s.cfg.SlowRate {
		out.Delay = s.between(s.cfg.SlowMin, s.cfg.SlowMax)
	} else {
		out.Delay = s.between(s.cfg.FastMin, s.cfg.FastMax)
	}
	out.Fail = s.rng.Float64() < s.cfg.ErrorRate
	return out
}

// between returns a duration in [lo, hi), or lo when the range is empty.
func (s *Simulator) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return max(lo, 0)
	}
	return lo + time.Duration(s.rng.Int64N(int64(hi-lo)))
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
