// Package requestlog records completed HTTP requests into a bounded,
// in-memory access log and derives statistics from it.
//
// It is distinct from operational logging (log/slog): entries here are
// user-facing data, queried over the API and streamed to dashboards.
//
// # Core Types
//
// Entry is one completed request. Store keeps the most recent entries up to
// its capacity (MaxEntries by default), owns the lifetime id counter, and
// notifies a single Listener after each Record, in id order. The engine
// wires that listener to the broadcast hub.
//
// # Statistics
//
// Store.Snapshot computes per-endpoint counters from the retained window
// only. Totals that must survive eviction come from TotalIssued.
//
// # Filters
//
// CompileFilter turns an expr-lang expression into a predicate usable with
// Store.Query:
//
//	f, err := requestlog.CompileFilter(`statusCode >= 400`)
//	errs := store.Query(50, f.Match)
package requestlog
