package api

import (
	"database/sql"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/taskforge/taskforge/pkg/audit"
	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/config"
	"github.com/taskforge/taskforge/pkg/httputil"
	"github.com/taskforge/taskforge/pkg/mail"
	"github.com/taskforge/taskforge/pkg/middleware"
	"github.com/taskforge/taskforge/pkg/observability"
	"github.com/taskforge/taskforge/pkg/tasks"
)

// Options carries the collaborators the server wires together
type Options struct {
	DB     *sql.DB
	Logger *logrus.Logger
	Mailer mail.Mailer
	Auth   config.AuthConfig

	// OTPLimiter throttles OTP issuance, APILimiter throttles the
	// authenticated surface. Both may be in-memory or redis-backed.
	OTPLimiter middleware.Limiter
	APILimiter middleware.Limiter

	// Redis is optional and only reported by the readiness probe
	Redis *redis.Client
}

// Server is the HTTP API server
type Server struct {
	router *mux.Router
	db     *sql.DB
	logger *logrus.Logger

	users    *auth.UserStore
	otp      *auth.OTPManager
	tokens   *auth.TokenService
	tasks    *tasks.Store
	audit    *audit.Recorder
	activity *audit.Store

	metrics *observability.Metrics
	health  *observability.HealthChecker

	accessGate  *middleware.AuthMiddleware
	refreshGate *middleware.AuthMiddleware
	otpLimit    *middleware.RateLimitMiddleware
	apiLimit    *middleware.RateLimitMiddleware
}

// NewServer creates the API server and configures all routes
func NewServer(opts Options) *Server {
	registry := prometheus.NewRegistry()
	users := auth.NewUserStore(opts.DB)
	tokens := auth.NewTokenService(opts.Auth.JWTSecret, opts.Auth.AccessTTL, opts.Auth.RefreshTTL)

	s := &Server{
		router:   mux.NewRouter(),
		db:       opts.DB,
		logger:   opts.Logger,
		users:    users,
		otp:      auth.NewOTPManager(opts.DB, opts.Mailer, opts.Logger, opts.Auth.OTPTTL),
		tokens:   tokens,
		tasks:    tasks.NewStore(opts.DB),
		audit:    audit.NewRecorder(),
		activity: audit.NewStore(opts.DB),
		metrics:  observability.NewMetrics(registry),
		health:   observability.NewHealthChecker(opts.DB, opts.Redis),

		accessGate:  middleware.NewAuthMiddleware(tokens, users, opts.Logger, auth.TokenTypeAccess),
		refreshGate: middleware.NewAuthMiddleware(tokens, users, opts.Logger, auth.TokenTypeRefresh),
		otpLimit:    middleware.NewRateLimitMiddleware(opts.OTPLimiter, middleware.OTPRequestPolicy, middleware.KeyByEmailOrAddress, opts.Logger),
		apiLimit:    middleware.NewRateLimitMiddleware(opts.APILimiter, middleware.APIPolicy, middleware.KeyByClientIP, opts.Logger),
	}

	s.setupRoutes(registry)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(registry *prometheus.Registry) {
	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		observability.HTTPMetricsMiddleware(s.metrics),
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(maxRequestBodyBytes),
	)

	// Auth routes
	s.router.Handle("/auth/otp/request", s.otpLimit.Handler(http.HandlerFunc(s.requestOTP))).Methods("POST")
	s.router.HandleFunc("/auth/otp/verify", s.verifyOTP).Methods("POST")
	s.router.Handle("/auth/refresh", s.refreshGate.Handler(http.HandlerFunc(s.refreshToken))).Methods("POST")

	// Task routes. Throttling runs before the auth gate so rejected
	// requests never touch the database.
	s.router.Handle("/tasks/", s.protected(s.createTask)).Methods("POST")
	s.router.Handle("/tasks/", s.protected(s.listTasks)).Methods("GET")
	s.router.Handle("/tasks/{id:[0-9]+}", s.protected(s.getTask)).Methods("GET")
	s.router.Handle("/tasks/{id:[0-9]+}", s.protected(s.updateTask)).Methods("PUT")
	s.router.Handle("/tasks/{id:[0-9]+}", s.protected(s.deleteTask)).Methods("DELETE")

	// Audit trail
	s.router.Handle("/activity", s.protected(s.listActivity)).Methods("GET")

	// Operational routes
	s.router.HandleFunc("/healthz", s.health.Readiness).Methods("GET")
	s.router.HandleFunc("/healthz/live", s.health.Liveness).Methods("GET")

	metricsHandler := observability.MetricsHandler(registry)
	s.router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.CollectDBStats(s.db)
		metricsHandler.ServeHTTP(w, r)
	}).Methods("GET")
}

// maxRequestBodyBytes caps request bodies; task payloads are small
const maxRequestBodyBytes = 1 << 20

// protected wraps a handler with the API rate limit and the access-token gate
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return httputil.Chain(s.apiLimit.Handler, s.accessGate.Handler)(h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
