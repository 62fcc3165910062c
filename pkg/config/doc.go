// Package config loads process configuration from environment variables.
//
// Configuration is loaded once at startup via LoadConfig and treated as
// immutable for the process lifetime. Secrets (the JWT signing key, SMTP
// credentials) are only ever read from the environment, never from flags,
// so they do not appear in process listings.
package config
