// Package httputil provides shared HTTP plumbing: JSON response writers that
// map the error taxonomy to status codes, request body and path-parameter
// parsing on top of gorilla/mux, and the outer middleware (request ID,
// structured request logging, panic recovery, body size caps).
//
// Internal errors are logged server-side and surface to clients as a generic
// message only.
package httputil
