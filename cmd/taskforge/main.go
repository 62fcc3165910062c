package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/taskforge/taskforge/pkg/api"
	"github.com/taskforge/taskforge/pkg/config"
	"github.com/taskforge/taskforge/pkg/mail"
	"github.com/taskforge/taskforge/pkg/middleware"
	"github.com/taskforge/taskforge/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.WithField("driver", cfg.Database.Driver).Info("Database ready")

	mailer := buildMailer(cfg.Mail, logger)
	redisClient := buildRedis(cfg.Redis, logger)
	otpLimiter, apiLimiter := buildLimiters(ctx, redisClient)

	server := api.NewServer(api.Options{
		DB:         db,
		Logger:     logger,
		Mailer:     mailer,
		Auth:       cfg.Auth,
		OTPLimiter: otpLimiter,
		APILimiter: apiLimiter,
		Redis:      redisClient,
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", addr).Info("Starting taskforge API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown did not complete cleanly: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	logger.Info("Server stopped")
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// buildMailer returns the SMTP mailer, or an in-memory recorder for local
// runs with no relay configured.
func buildMailer(cfg config.MailConfig, logger *logrus.Logger) mail.Mailer {
	if cfg.Host == "" {
		logger.Warn("No SMTP host configured; OTP mail will be captured in memory only")
		return mail.NewRecorder()
	}
	return mail.NewSMTPMailer(cfg)
}

func buildRedis(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	if cfg.URL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Fatalf("Invalid redis URL: %v", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	logger.WithField("addr", opts.Addr).Info("Using redis-backed rate limiting")
	return redis.NewClient(opts)
}

// buildLimiters picks the rate limit backend. With redis, counters are
// shared across instances; without it each process keeps its own windows
// and a janitor goroutine prunes expired ones.
func buildLimiters(ctx context.Context, redisClient *redis.Client) (middleware.Limiter, middleware.Limiter) {
	if redisClient != nil {
		return middleware.NewRedisRateLimiter(redisClient, middleware.OTPRequestPolicy, "ratelimit:otp"),
			middleware.NewRedisRateLimiter(redisClient, middleware.APIPolicy, "ratelimit:api")
	}

	otp := middleware.NewFixedWindowLimiter(middleware.OTPRequestPolicy)
	otp.StartCleanup(ctx)
	general := middleware.NewFixedWindowLimiter(middleware.APIPolicy)
	general.StartCleanup(ctx)
	return otp, general
}
