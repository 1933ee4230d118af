package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/simmurator/simmurator/pkg/httputil"
	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/simmurator/simmurator/pkg/sensor"
)

// Error messages returned by the sensor routes.
const (
	MsgSensorNotFound    = "Sensor not found"
	MsgSensorUnavailable = "Sensor temporarily unavailable"
)

// EndpointInfo describes one pollable sensor route.
type EndpointInfo struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// handleEndpoints lists the sensor routes in registry order.
func (s *Server) handleEndpoints(w http.ResponseWriter, _ *http.Request) {
	names := s.provider.Names()
	endpoints := make([]EndpointInfo, 0, len(names))
	for _, name := range names {
		endpoints = append(endpoints, EndpointInfo{
			Name:        name,
			URL:         "/api/v1/sensors/" + name,
			Method:      http.MethodGet,
			Description: fmt.Sprintf("Returns simulated %s IoT sensor data", strings.ReplaceAll(name, "-", " ")),
		})
	}
	httputil.WriteOK(w, httputil.Fields{"endpoints": endpoints})
}

// handleSensors returns one fresh reading per sensor, without simulation.
func (s *Server) handleSensors(w http.ResponseWriter, _ *http.Request) {
	data := make(map[string]*sensor.Reading)
	for _, name := range s.provider.Names() {
		reading, err := s.provider.Produce(name)
		if err != nil {
			s.log.Debug("skipping sensor", "sensor", name, "error", err)
			continue
		}
		data[name] = reading
	}
	httputil.WriteOK(w, httputil.Fields{
		"timestamp": timestamp(),
		"data":      data,
	})
}

// handleSensor returns one reading after the simulated latency. The
// simulated failure is drawn before the key is looked up, so unknown keys
// can also fail with 500.
func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	out := s.sim.Next()
	if err := sleepContext(r.Context(), out.Delay); err != nil {
		return
	}
	if out.Fail {
		httputil.WriteErrorAt(w, http.StatusInternalServerError, MsgSensorUnavailable, time.Now())
		return
	}

	reading, err := s.provider.Produce(key)
	if errors.Is(err, sensor.ErrNotFound) {
		httputil.WriteNotFound(w, MsgSensorNotFound)
		return
	}
	if err != nil {
		s.log.Warn("sensor produce failed", "sensor", key, "error", err)
		httputil.WriteErrorAt(w, http.StatusInternalServerError, MsgSensorUnavailable, time.Now())
		return
	}

	var data any = reading
	if sel := r.URL.Query().Get("select"); sel != "" {
		data, err = project(reading, sel)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid select expression: "+err.Error())
			return
		}
	}
	httputil.WriteOK(w, httputil.Fields{
		"timestamp": timestamp(),
		"data":      data,
	})
}

// project evaluates a JSONPath expression against v's JSON form and
// returns every match.
func project(v any, path string) ([]any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := oj.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	matches := expr.Get(doc)
	if matches == nil {
		matches = []any{}
	}
	return matches, nil
}

// handleAccessLog returns the most recent entries. limit defaults to the
// configured page size, is capped at the store capacity, and falls back
// to the default when it does not parse.
func (s *Server) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := s.cfg.DefaultLimit
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			limit = n
		}
	}
	limit = min(limit, s.store.Capacity())

	var match func(requestlog.Entry) bool
	if expr := q.Get("filter"); expr != "" {
		f, err := requestlog.CompileFilter(expr)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid filter: "+err.Error())
			return
		}
		match = f.Match
	}

	httputil.WriteOK(w, httputil.Fields{
		"total":   s.store.TotalIssued(),
		"entries": s.store.Query(limit, match),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := s.store.Snapshot(s.hub)
	httputil.WriteOK(w, httputil.Fields{
		"totalRequests":     st.TotalRequests,
		"activeConnections": st.ActiveConnections,
		"endpointStats":     st.EndpointStats,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, httputil.Fields{
		"timestamp": timestamp(),
		"uptime":    int64(s.Uptime().Seconds()),
	})
}
