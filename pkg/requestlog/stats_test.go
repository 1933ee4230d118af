package requestlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

func TestSnapshot_PerEndpoint(t *testing.T) {
	s := NewStore(100)
	s.Record(entryFor("/api/v1/sensors/temperature", 200, 10))
	s.Record(entryFor("/api/v1/sensors/temperature", 500, 15))
	s.Record(entryFor("/api/v1/sensors/temperature", 200, 20))
	s.Record(entryFor("/api/v1/sensors/humidity", 404, 3))

	st := s.Snapshot(fixedCounter(2))

	assert.Equal(t, int64(4), st.TotalRequests)
	assert.Equal(t, 2, st.ActiveConnections)
	require.Len(t, st.EndpointStats, 2)

	temp := st.EndpointStats["/api/v1/sensors/temperature"]
	assert.Equal(t, 3, temp.Count)
	assert.Equal(t, int64(45), temp.TotalTime)
	assert.Equal(t, int64(15), temp.AvgResponseTime)
	assert.Equal(t, 1, temp.Errors)

	hum := st.EndpointStats["/api/v1/sensors/humidity"]
	assert.Equal(t, 1, hum.Count)
	assert.Equal(t, 1, hum.Errors)
}

func TestSnapshot_AverageRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name  string
		times []int64
		want  int64
	}{
		{"exact", []int64{10, 20}, 15},
		{"half rounds up", []int64{1, 2}, 2},
		{"below half rounds down", []int64{1, 1, 2}, 1},
		{"above half rounds up", []int64{1, 2, 2}, 2},
		{"zero", []int64{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(10)
			for _, ms := range tt.times {
				s.Record(entryFor("/x", 200, ms))
			}
			assert.Equal(t, tt.want, s.Snapshot(nil).EndpointStats["/x"].AvgResponseTime)
		})
	}
}

func TestSnapshot_EmptyStore(t *testing.T) {
	st := NewStore(10).Snapshot(nil)
	assert.Equal(t, int64(0), st.TotalRequests)
	assert.Equal(t, 0, st.ActiveConnections)
	assert.NotNil(t, st.EndpointStats)
	assert.Empty(t, st.EndpointStats)
}

// Stats are computed from the retained window only. Once unrelated traffic
// evicts an endpoint's entries, its count shrinks (or it disappears), while
// TotalRequests keeps the lifetime total.
func TestSnapshot_CountsOnlyRetainedWindow(t *testing.T) {
	s := NewStore(MaxEntries)

	for i := 0; i < 300; i++ {
		s.Record(entryFor("/api/v1/sensors/humidity", 200, 5))
	}
	for i := 0; i < 9700; i++ {
		s.Record(entryFor("/api/v1/sensors/temperature", 200, 5))
	}

	st := s.Snapshot(nil)

	assert.Equal(t, int64(10000), st.TotalRequests)
	assert.Equal(t, MaxEntries, st.EndpointStats["/api/v1/sensors/temperature"].Count)
	_, present := st.EndpointStats["/api/v1/sensors/humidity"]
	assert.False(t, present, "fully evicted endpoint is absent, not zero")
}

func TestSnapshot_PartialEviction(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 6; i++ {
		s.Record(entryFor("/popular", 200, 1))
	}
	for i := 0; i < 7; i++ {
		s.Record(entryFor("/other", 200, 1))
	}

	st := s.Snapshot(nil)
	assert.Equal(t, 3, st.EndpointStats["/popular"].Count, "6 recorded, 3 evicted")
	assert.Equal(t, 7, st.EndpointStats["/other"].Count)
	assert.Equal(t, int64(13), st.TotalRequests)
}
