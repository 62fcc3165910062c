package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taskforge/taskforge/pkg/audit"
	"github.com/taskforge/taskforge/pkg/mail"
	"github.com/taskforge/taskforge/pkg/storage"
)

// CodeDigits is the width of a one-time code
const CodeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode produces a 6-digit numeric code from crypto/rand,
// zero-padded to fixed width
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeDigits, n), nil
}

// HashCode computes the SHA-256 hex digest of a code for storage.
// The plaintext code is never persisted.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// codesMatch compares a stored digest against a submitted code in
// constant time
func codesMatch(storedHash, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashCode(submitted))) == 1
}

// OTPManager implements the passwordless login flow: issuing codes to an
// email address and verifying submitted codes against the stored digest.
type OTPManager struct {
	db     *sql.DB
	users  *UserStore
	mailer mail.Mailer
	audit  *audit.Recorder
	logger *logrus.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewOTPManager creates an OTP manager. ttl bounds the lifetime of each
// issued code.
func NewOTPManager(db *sql.DB, mailer mail.Mailer, logger *logrus.Logger, ttl time.Duration) *OTPManager {
	return &OTPManager{
		db:     db,
		users:  NewUserStore(db),
		mailer: mailer,
		audit:  audit.NewRecorder(),
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the manager's clock source, for tests
func (m *OTPManager) WithClock(now func() time.Time) *OTPManager {
	m.now = now
	m.audit = m.audit.WithClock(now)
	return m
}

// Issue generates a fresh code for email, creating the account on first
// contact. The user upsert, code digest and audit entry commit in one
// transaction before delivery is attempted; a delivery failure is returned
// to the caller but leaves the persisted code intact.
func (m *OTPManager) Issue(ctx context.Context, email string) error {
	code, err := GenerateCode()
	if err != nil {
		return err
	}
	hash := HashCode(code)
	expiry := m.now().Add(m.ttl).UTC()

	err = storage.InTx(ctx, m.db, func(tx *sql.Tx) error {
		user, err := m.users.EnsureByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if err := m.users.SetOTP(ctx, tx, user.ID, hash, expiry); err != nil {
			return err
		}
		return m.audit.Record(ctx, tx, &user.ID, audit.ActionOTPRequest, "OTP requested for "+email)
	})
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your OTP is %s. It expires in %d minutes.", code, int(m.ttl.Minutes()))
	if err := m.mailer.Send(ctx, email, "Your OTP", body); err != nil {
		m.logger.WithField("email", email).WithError(err).Error("otp delivery failed")
		return fmt.Errorf("otp delivery failed: %w", err)
	}
	return nil
}

// Verify checks a submitted code. On success the outstanding code is cleared
// and a "Login Success" entry committed; the code can never verify twice. A
// mismatch commits a "Login Failed" entry and returns ErrInvalidCode — the
// audit trail captures failed attempts. Neither branch mutates the stored
// digest on mismatch.
func (m *OTPManager) Verify(ctx context.Context, email, code string) (*User, error) {
	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user.OTPHash == nil || user.OTPExpiry == nil || user.OTPExpiry.Before(m.now()) {
		return nil, ErrOTPExpired
	}

	if !codesMatch(*user.OTPHash, code) {
		err := storage.InTx(ctx, m.db, func(tx *sql.Tx) error {
			return m.audit.Record(ctx, tx, &user.ID, audit.ActionLoginFailed, "Invalid OTP")
		})
		if err != nil {
			// Losing the failed-attempt record is treated as fatal to the
			// request rather than silently dropping the trail.
			return nil, err
		}
		return nil, ErrInvalidCode
	}

	err = storage.InTx(ctx, m.db, func(tx *sql.Tx) error {
		if err := m.users.ClearOTP(ctx, tx, user.ID); err != nil {
			return err
		}
		return m.audit.Record(ctx, tx, &user.ID, audit.ActionLoginSuccess, "OTP verified")
	})
	if err != nil {
		return nil, err
	}

	user.OTPHash = nil
	user.OTPExpiry = nil
	return user, nil
}
