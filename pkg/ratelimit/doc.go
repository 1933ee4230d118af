// Package ratelimit provides a per-client token bucket HTTP middleware backed
// by golang.org/x/time/rate.
package ratelimit
