package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestFixedWindowLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewFixedWindowLimiter(Policy{Requests: 3, Window: 10 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "email:a@x.com")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "email:a@x.com")
	require.NoError(t, err)
	assert.False(t, allowed, "4th request in the window must be rejected")
}

func TestFixedWindowLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewFixedWindowLimiter(Policy{Requests: 1, Window: time.Minute})
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "email:a@x.com")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "email:a@x.com")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "email:b@x.com")
	assert.True(t, allowed, "a different key has its own window")
}

func TestFixedWindowLimiter_WindowResets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewFixedWindowLimiter(Policy{Requests: 1, Window: 10 * time.Minute}).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "k")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "k")
	assert.False(t, allowed)

	now = now.Add(10 * time.Minute)
	allowed, _ = limiter.Allow(ctx, "k")
	assert.True(t, allowed, "a new window starts after expiry")
}

func TestFixedWindowLimiter_ConcurrentBurst(t *testing.T) {
	limiter := NewFixedWindowLimiter(Policy{Requests: 50, Window: time.Minute})
	ctx := context.Background()

	var allowedCount int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(ctx, "burst"); ok {
				atomic.AddInt64(&allowedCount, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowedCount, "concurrent burst must not exceed the limit")
}

func TestFixedWindowLimiter_Remaining(t *testing.T) {
	limiter := NewFixedWindowLimiter(Policy{Requests: 3, Window: time.Minute})
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	limiter.Allow(ctx, "k")
	remaining, _ = limiter.Remaining(ctx, "k")
	assert.Equal(t, 2, remaining)
}

func TestFixedWindowLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewFixedWindowLimiter(Policy{Requests: 1, Window: time.Minute}).
		WithClock(func() time.Time { return now })

	limiter.Allow(context.Background(), "k")
	now = now.Add(2 * time.Minute)
	limiter.Cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.windows)
}

func TestKeyByEmailOrAddress(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/otp/request", strings.NewReader(`{"email":"a@x.com"}`))
	assert.Equal(t, "email:a@x.com", KeyByEmailOrAddress(req))

	// The body must still be readable by the handler afterwards.
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@x.com"}`, string(body))
}

func TestKeyByEmailOrAddress_FallsBackToIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/otp/request", strings.NewReader(`{"foo":1}`))
	req.RemoteAddr = "10.1.2.3:4444"
	assert.Equal(t, "ip:10.1.2.3:4444", KeyByEmailOrAddress(req))

	req = httptest.NewRequest("POST", "/auth/otp/request", strings.NewReader(`not-json`))
	req.RemoteAddr = "10.1.2.3:4444"
	assert.Equal(t, "ip:10.1.2.3:4444", KeyByEmailOrAddress(req))
}

func TestKeyByClientIP_ForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/tasks/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "ip:203.0.113.9", KeyByClientIP(req))
}

func TestRateLimitMiddleware_Rejects(t *testing.T) {
	limiter := NewFixedWindowLimiter(Policy{Requests: 3, Window: 10 * time.Minute})
	var handled int
	mw := NewRateLimitMiddleware(limiter, OTPRequestPolicy, KeyByEmailOrAddress, testLogger())
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/auth/otp/request", strings.NewReader(`{"email":"a@x.com"}`))
		handler.ServeHTTP(rec, req)

		if i < 3 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		}
	}

	assert.Equal(t, 3, handled, "the throttled request must not reach the handler")
}

func TestRateLimitMiddleware_SetsHeaders(t *testing.T) {
	limiter := NewFixedWindowLimiter(Policy{Requests: 100, Window: time.Minute})
	mw := NewRateLimitMiddleware(limiter, APIPolicy, KeyByClientIP, testLogger())
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/tasks/", nil))

	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
}
