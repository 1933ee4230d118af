package engine

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimulator_Ranges(t *testing.T) {
	sim := NewSimulator(DefaultSimulation(), rand.New(rand.NewPCG(7, 7)))

	var slow, fails int
	const n = 4000
	for i := 0; i < n; i++ {
		out := sim.Next()
		switch {
		case out.Delay >= 200*time.Millisecond:
			assert.Less(t, out.Delay, 800*time.Millisecond)
			slow++
		default:
			assert.GreaterOrEqual(t, out.Delay, 5*time.Millisecond)
			assert.Less(t, out.Delay, 50*time.Millisecond)
		}
		if out.Fail {
			fails++
		}
	}

	// Loose bounds around 10% slow and 5% failing.
	assert.InDelta(t, 0.10, float64(slow)/n, 0.03)
	assert.InDelta(t, 0.05, float64(fails)/n, 0.02)
}

func TestSimulator_Extremes(t *testing.T) {
	tests := []struct {
		name      string
		cfg       SimulationConfig
		wantDelay time.Duration
		wantFail  bool
	}{
		{"never slow never fail", SimulationConfig{FastMin: 3 * time.Millisecond, FastMax: 3 * time.Millisecond}, 3 * time.Millisecond, false},
		{"always slow", SimulationConfig{SlowRate: 1, SlowMin: time.Second, SlowMax: time.Second}, time.Second, false},
		{"always fail", SimulationConfig{ErrorRate: 1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulator(tt.cfg, rand.New(rand.NewPCG(1, 2)))
			for i := 0; i < 20; i++ {
				out := sim.Next()
				assert.Equal(t, tt.wantDelay, out.Delay)
				assert.Equal(t, tt.wantFail, out.Fail)
			}
		})
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	a := NewSimulator(DefaultSimulation(), rand.New(rand.NewPCG(42, 0)))
	b := NewSimulator(DefaultSimulation(), rand.New(rand.NewPCG(42, 0)))
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
