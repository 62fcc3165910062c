package api

import (
	"errors"
	"net/http"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/httputil"
	"github.com/taskforge/taskforge/pkg/middleware"
)

// requestOTP handles POST /auth/otp/request
func (s *Server) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid json")
		return
	}
	if req.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}

	if err := s.otp.Issue(r.Context(), req.Email); err != nil {
		s.logger.WithError(err).WithField("email", req.Email).Error("otp issuance failed")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.OTPIssuedTotal.Inc()
	httputil.WriteSuccess(w, map[string]string{"message": "OTP sent successfully"})
}

// verifyOTP handles POST /auth/otp/verify
func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid json")
		return
	}
	if req.Email == "" || req.OTP == "" {
		httputil.WriteBadRequest(w, "email and otp are required")
		return
	}

	user, err := s.otp.Verify(r.Context(), req.Email, req.OTP)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		s.metrics.OTPVerificationsTotal.WithLabelValues("unknown_user").Inc()
		httputil.WriteNotFound(w, "user not found")
		return
	case errors.Is(err, auth.ErrOTPExpired):
		s.metrics.OTPVerificationsTotal.WithLabelValues("expired").Inc()
		httputil.WriteBadRequest(w, "otp expired or invalid")
		return
	case errors.Is(err, auth.ErrInvalidCode):
		s.metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		httputil.WriteUnauthorized(w, "invalid otp")
		return
	case err != nil:
		s.logger.WithError(err).WithField("email", req.Email).Error("otp verification failed")
		httputil.WriteInternalError(w)
		return
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("failed to sign access token")
		httputil.WriteInternalError(w)
		return
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("failed to sign refresh token")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.OTPVerificationsTotal.WithLabelValues("success").Inc()
	s.metrics.TokensIssuedTotal.WithLabelValues(string(auth.TokenTypeAccess)).Inc()
	s.metrics.TokensIssuedTotal.WithLabelValues(string(auth.TokenTypeRefresh)).Inc()

	httputil.WriteSuccess(w, map[string]interface{}{
		"access_token":  access,
		"refresh_token": refresh,
		"user_id":       user.ID,
	})
}

// refreshToken handles POST /auth/refresh. The route is behind the refresh
// gate, so the caller has already been resolved from a refresh-type token.
func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "invalid or expired token")
		return
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("failed to sign access token")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.TokensIssuedTotal.WithLabelValues(string(auth.TokenTypeAccess)).Inc()
	httputil.WriteSuccess(w, map[string]string{"access_token": access})
}
