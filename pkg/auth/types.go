package auth

import (
	"errors"
	"time"
)

// User represents an account identified by email. Accounts are created
// implicitly on first OTP request; there is no separate signup step.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`

	// OTPHash is the SHA-256 digest of the current one-time code, nil when
	// no code is outstanding. Never exposed over the API.
	OTPHash   *string    `json:"-"`
	OTPExpiry *time.Time `json:"-"`
}

// TokenType distinguishes the two token classes. Verification rejects a
// token presented for the wrong class, so a refresh token cannot be replayed
// as an access token or vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	// ErrUserNotFound means no account exists for the given email or id
	ErrUserNotFound = errors.New("user not found")

	// ErrOTPExpired means no code is outstanding or the outstanding code
	// has passed its expiry
	ErrOTPExpired = errors.New("otp expired or invalid")

	// ErrInvalidCode means the submitted code does not match the stored digest
	ErrInvalidCode = errors.New("invalid otp")

	// ErrInvalidToken means the token failed to decode or its signature is bad
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired means the token's expiry claim is in the past
	ErrTokenExpired = errors.New("token expired")

	// ErrWrongTokenType means a token of one class was presented where the
	// other class is required
	ErrWrongTokenType = errors.New("wrong token type")
)
