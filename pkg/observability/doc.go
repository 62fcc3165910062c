// Package observability exposes prometheus metrics for the HTTP surface and
// the auth/task domains, and health probes that report database and redis
// reachability.
package observability
