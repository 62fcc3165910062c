// Package middleware provides the request-wrapping layers that guard the
// API: bearer-token authentication resolving the caller to a live user
// record, and per-identity rate limiting with interchangeable in-memory and
// redis backends.
//
// Ordering matters and is preserved by the server wiring: rate limiting runs
// before the handler so throttled requests have no side effects, and
// authentication runs before any handler that scopes data by owner.
package middleware
