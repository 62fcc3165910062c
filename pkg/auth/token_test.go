package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *TokenService {
	return NewTokenService("test-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestTokenService_IssueAndVerifyAccess(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.IssueAccess(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.Verify(token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenService_IssueAndVerifyRefresh(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.IssueRefresh(42)
	require.NoError(t, err)

	userID, err := svc.Verify(token, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenService_RejectsWrongClass(t *testing.T) {
	svc := newTestTokenService()

	access, err := svc.IssueAccess(42)
	require.NoError(t, err)
	refresh, err := svc.IssueRefresh(42)
	require.NoError(t, err)

	// A refresh token cannot be replayed as an access token, nor the reverse.
	_, err = svc.Verify(refresh, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = svc.Verify(access, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTokenService_Expired(t *testing.T) {
	svc := newTestTokenService()
	token, err := svc.IssueAccess(42)
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return time.Now().Add(16 * time.Minute) })
	_, err = svc.Verify(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_RefreshOutlivesAccess(t *testing.T) {
	svc := newTestTokenService()
	refresh, err := svc.IssueRefresh(42)
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return time.Now().Add(24 * time.Hour) })
	userID, err := svc.Verify(refresh, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenService_BadSignature(t *testing.T) {
	svc := newTestTokenService()
	token, err := svc.IssueAccess(42)
	require.NoError(t, err)

	other := NewTokenService("different-secret", 15*time.Minute, 7*24*time.Hour)
	_, err = other.Verify(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Garbage(t *testing.T) {
	svc := newTestTokenService()
	_, err := svc.Verify("not-a-jwt", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
