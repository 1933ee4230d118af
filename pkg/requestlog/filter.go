package requestlog

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// maxCachedFilters bounds the compiled-filter cache; filters come from
// query strings so the key space is user controlled.
const maxCachedFilters = 64

var (
	filterMu    sync.RWMutex
	filterCache = make(map[string]*Filter)
)

// Filter is a compiled boolean expression over an entry, e.g.
//
//	statusCode >= 500 && endpoint startsWith "/api/v1/sensors"
//
// Available variables: id, timestamp, ip, userAgent, endpoint, method,
// statusCode, responseTime, deviceId.
type Filter struct {
	source  string
	program *vm.Program
}

// CompileFilter compiles expression, reusing a cached program when the same
// expression was compiled before.
func CompileFilter(expression string) (*Filter, error) {
	filterMu.RLock()
	if f, ok := filterCache[expression]; ok {
		filterMu.RUnlock()
		return f, nil
	}
	filterMu.RUnlock()

	program, err := expr.Compile(expression, expr.Env(filterEnv(Entry{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}
	f := &Filter{source: expression, program: program}

	filterMu.Lock()
	if len(filterCache) >= maxCachedFilters {
		clear(filterCache)
	}
	filterCache[expression] = f
	filterMu.Unlock()

	return f, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.source
}

// Match reports whether e satisfies the filter. Evaluation errors count as
// a non-match.
func (f *Filter) Match(e Entry) bool {
	out, err := expr.Run(f.program, filterEnv(e))
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func filterEnv(e Entry) map[string]any {
	deviceID := ""
	if e.DeviceID != nil {
		deviceID = *e.DeviceID
	}
	return map[string]any{
		"id":           e.ID,
		"timestamp":    e.Timestamp,
		"ip":           e.IP,
		"userAgent":    e.UserAgent,
		"endpoint":     e.Endpoint,
		"method":       e.Method,
		"statusCode":   e.StatusCode,
		"responseTime": e.ResponseTime,
		"deviceId":     deviceID,
	}
}
