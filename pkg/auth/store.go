package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserStore persists user records and their OTP state
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store over the given database
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.OTPHash, &u.OTPExpiry, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

const selectUserByEmail = `SELECT id, email, otp_hash, otp_expiry, created_at FROM users WHERE email = $1`
const selectUserByID = `SELECT id, email, otp_hash, otp_expiry, created_at FROM users WHERE id = $1`

// GetByEmail returns the user for an email, or ErrUserNotFound.
// Emails are matched exactly as stored (case-sensitive).
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUserByEmail, email))
}

// GetByID returns the user for an id, or ErrUserNotFound
func (s *UserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUserByID, id))
}

// EnsureByEmail returns the user for an email, creating the record if it
// does not exist yet. Runs inside the caller's transaction.
func (s *UserStore) EnsureByEmail(ctx context.Context, tx *sql.Tx, email string) (*User, error) {
	u, err := scanUser(tx.QueryRowContext(ctx, selectUserByEmail, email))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	// ON CONFLICT covers the race where two OTP requests for a new email
	// arrive concurrently.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (email) VALUES ($1) ON CONFLICT (email) DO NOTHING`, email,
	); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return scanUser(tx.QueryRowContext(ctx, selectUserByEmail, email))
}

// SetOTP stores a new code digest and expiry, superseding any previous code
func (s *UserStore) SetOTP(ctx context.Context, tx *sql.Tx, userID int64, hash string, expiry time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET otp_hash = $1, otp_expiry = $2 WHERE id = $3`,
		hash, expiry, userID,
	); err != nil {
		return fmt.Errorf("failed to set otp: %w", err)
	}
	return nil
}

// ClearOTP removes the outstanding code so it can never verify twice
func (s *UserStore) ClearOTP(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET otp_hash = NULL, otp_expiry = NULL WHERE id = $1`, userID,
	); err != nil {
		return fmt.Errorf("failed to clear otp: %w", err)
	}
	return nil
}
