// Package session implements the WebSocket sensor streaming protocol.
//
// A Session owns one connection's subscription set and push interval. Client
// actions (subscribe, unsubscribe, list, ping) are parsed into a closed set of
// Action types and applied under the session mutex. While the set is
// non-empty a single push task, run by a Scheduler, writes one data frame per
// subscribed sensor on every tick.
package session
