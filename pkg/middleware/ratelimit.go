package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taskforge/taskforge/pkg/httputil"
)

// Policy defines a fixed-window rate limit
type Policy struct {
	// Requests is the max requests allowed per window
	Requests int
	// Window is the counting window
	Window time.Duration
}

// OTPRequestPolicy throttles OTP issuance to blunt brute-force and spam
var OTPRequestPolicy = Policy{Requests: 3, Window: 10 * time.Minute}

// APIPolicy throttles authenticated task endpoints
var APIPolicy = Policy{Requests: 100, Window: time.Minute}

// Limiter is the rate limiting backend shared by the in-memory and redis
// implementations
type Limiter interface {
	// Allow atomically checks and counts one request for key
	Allow(ctx context.Context, key string) (bool, error)
	// Remaining reports how many requests key has left in the current window
	Remaining(ctx context.Context, key string) (int, error)
}

type window struct {
	start time.Time
	count int
}

// FixedWindowLimiter counts requests per key in fixed windows, in process
// memory. State is ephemeral; restarts reset all counters.
type FixedWindowLimiter struct {
	policy  Policy
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewFixedWindowLimiter creates an in-memory limiter for the given policy
func NewFixedWindowLimiter(policy Policy) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		policy:  policy,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// WithClock overrides the limiter's clock source, for tests
func (l *FixedWindowLimiter) WithClock(now func() time.Time) *FixedWindowLimiter {
	l.now = now
	return l
}

// Allow checks and increments under one lock so concurrent bursts cannot
// exceed the configured count
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.policy.Window {
		l.windows[key] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count < l.policy.Requests {
		w.count++
		return true, nil
	}
	return false, nil
}

// Remaining returns the requests left for key in the current window
func (l *FixedWindowLimiter) Remaining(ctx context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().Sub(w.start) >= l.policy.Window {
		return l.policy.Requests, nil
	}
	remaining := l.policy.Requests - w.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Cleanup removes expired windows (should be called periodically)
func (l *FixedWindowLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.policy.Window {
			delete(l.windows, key)
		}
	}
}

// StartCleanup starts a background goroutine that prunes expired windows
// until ctx is cancelled
func (l *FixedWindowLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(l.policy.Window)
	go func() {
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// KeyFunc derives the identity key a request is counted under
type KeyFunc func(r *http.Request) string

// KeyByClientIP keys requests by the caller's network address
func KeyByClientIP(r *http.Request) string {
	return "ip:" + httputil.ClientIP(r)
}

// maxKeyBodyBytes bounds how much of a request body the email key extractor
// will read
const maxKeyBodyBytes = 1 << 16

// KeyByEmailOrAddress keys requests by the email field of a JSON body,
// falling back to the caller's network address when the body has none. The
// body is restored so the handler can read it again.
func KeyByEmailOrAddress(r *http.Request) string {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBodyBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return KeyByClientIP(r)
	}

	var probe struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Email == "" {
		return KeyByClientIP(r)
	}
	return "email:" + probe.Email
}

// RateLimitMiddleware applies one policy to the requests it wraps. It runs
// before the handler, so a throttled request performs no side effects.
type RateLimitMiddleware struct {
	limiter Limiter
	policy  Policy
	key     KeyFunc
	logger  *logrus.Logger
}

// NewRateLimitMiddleware creates a rate limiting middleware
func NewRateLimitMiddleware(limiter Limiter, policy Policy, key KeyFunc, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		policy:  policy,
		key:     key,
		logger:  logger,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.key(r)

		allowed, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			// Fail open: a degraded limiter backend must not take the API down.
			m.logger.WithError(err).Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			retryAfter := int(m.policy.Window.Seconds())
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.policy.Requests))
			w.Header().Set("X-RateLimit-Remaining", "0")
			m.logger.WithField("key", key).Info("rate limit exceeded")
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		if remaining, err := m.limiter.Remaining(r.Context(), key); err == nil {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.policy.Requests))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		}

		next.ServeHTTP(w, r)
	})
}
