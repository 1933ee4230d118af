package requestlog

// ConnectionCounter reports how many passive stream subscribers are attached.
type ConnectionCounter interface {
	Count() int
}

// EndpointStats aggregates the retained entries for one endpoint.
type EndpointStats struct {
	Count           int   `json:"count"`
	TotalTime       int64 `json:"totalTime"`
	Errors          int   `json:"errors"`
	AvgResponseTime int64 `json:"avgResponseTime"`
}

// Stats is a point-in-time summary of the access log.
//
// EndpointStats covers only the entries still retained by the store, so an
// endpoint's count can be lower than its lifetime request count once older
// entries have been evicted. TotalRequests is the lifetime counter.
type Stats struct {
	TotalRequests     int64                    `json:"totalRequests"`
	ActiveConnections int                      `json:"activeConnections"`
	EndpointStats     map[string]EndpointStats `json:"endpointStats"`
}

// Snapshot scans the retained entries once and derives per-endpoint stats.
// counter may be nil, in which case ActiveConnections is zero.
func (s *Store) Snapshot(counter ConnectionCounter) Stats {
	s.mu.RLock()
	per := make(map[string]EndpointStats)
	for _, e := range s.entries {
		st := per[e.Endpoint]
		st.Count++
		st.TotalTime += e.ResponseTime
		if e.IsError() {
			st.Errors++
		}
		per[e.Endpoint] = st
	}
	total := s.nextID
	s.mu.RUnlock()

	for ep, st := range per {
		st.AvgResponseTime = roundHalfUp(st.TotalTime, int64(st.Count))
		per[ep] = st
	}

	active := 0
	if counter != nil {
		active = counter.Count()
	}

	return Stats{
		TotalRequests:     total,
		ActiveConnections: active,
		EndpointStats:     per,
	}
}

// roundHalfUp returns sum/count rounded half up. Both are non-negative.
func roundHalfUp(sum, count int64) int64 {
	if count == 0 {
		return 0
	}
	return (2*sum + count) / (2 * count)
}
