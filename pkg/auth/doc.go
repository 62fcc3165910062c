// Package auth implements passwordless authentication.
//
// The flow has two halves. The OTPManager issues six-digit one-time codes to
// an email address (creating the account implicitly on first contact) and
// verifies submitted codes against a stored SHA-256 digest with a five-minute
// expiry. The TokenService then exchanges a verified login for a pair of
// HMAC-SHA256 signed JWTs: a short-lived access token and a long-lived
// refresh token, distinguished by a token_type claim so one class cannot be
// replayed as the other.
//
// Every issuance and every verification outcome — success or failure — is
// recorded to the activity log in the same transaction as its state change.
package auth
