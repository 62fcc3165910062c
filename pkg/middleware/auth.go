package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/contextkeys"
	"github.com/taskforge/taskforge/pkg/httputil"
)

// AuthMiddleware resolves a caller identity from a bearer token on every
// protected request. The token must verify, carry the expected class, and
// resolve to a live user record; anything else is a 401.
type AuthMiddleware struct {
	tokens *auth.TokenService
	users  *auth.UserStore
	logger *logrus.Logger
	want   auth.TokenType
}

// NewAuthMiddleware creates an authentication middleware requiring tokens of
// the given class
func NewAuthMiddleware(tokens *auth.TokenService, users *auth.UserStore, logger *logrus.Logger, want auth.TokenType) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		users:  users,
		logger: logger,
		want:   want,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.logger.WithField("path", r.URL.Path).Debug("missing authorization header")
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.logger.WithField("path", r.URL.Path).Debug("malformed authorization header")
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		userID, err := m.tokens.Verify(parts[1], m.want)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"reason": err.Error(),
			}).Debug("token rejected")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if errors.Is(err, auth.ErrUserNotFound) {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}
		if err != nil {
			m.logger.WithError(err).Error("user lookup failed")
			httputil.WriteInternalError(w)
			return
		}

		ctx := contextkeys.WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromRequest extracts the authenticated user placed by AuthMiddleware.
// Returns nil if the request did not pass through the middleware.
func UserFromRequest(r *http.Request) *auth.User {
	user, ok := contextkeys.UserValue(r.Context()).(*auth.User)
	if !ok {
		return nil
	}
	return user
}
