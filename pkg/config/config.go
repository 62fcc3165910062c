package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Mail     MailConfig
	Redis    RedisConfig

	// LogLevel is the logrus level name (debug, info, warn, error)
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds relational store configuration
type DatabaseConfig struct {
	// Driver selects the sql driver: "sqlite3" or "postgres"
	Driver string
	// DSN is the driver-specific data source name
	DSN string
	MaxConns    int
	MaxIdle     int
	MaxLifetime time.Duration
}

// AuthConfig holds token signing and OTP settings
type AuthConfig struct {
	// JWTSecret signs access and refresh tokens (HMAC-SHA256).
	// Loaded once at startup and never mutated.
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	OTPTTL     time.Duration
}

// MailConfig holds outbound SMTP settings
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
	UseTLS   bool
}

// RedisConfig holds optional redis settings for distributed rate limiting
type RedisConfig struct {
	// URL enables the redis-backed rate limiter when non-empty
	URL      string
	Password string
	DB       int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TASKFORGE_HOST", "0.0.0.0"),
			Port:            getEnv("TASKFORGE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TASKFORGE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TASKFORGE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TASKFORGE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TASKFORGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("TASKFORGE_DB_DRIVER", "sqlite3"),
			DSN:         getEnv("TASKFORGE_DB_DSN", "file:taskforge.db?_fk=1"),
			MaxConns:    getEnvInt("TASKFORGE_DB_MAX_CONNS", 10),
			MaxIdle:     getEnvInt("TASKFORGE_DB_MAX_IDLE", 5),
			MaxLifetime: getEnvDuration("TASKFORGE_DB_MAX_LIFETIME", time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("TASKFORGE_JWT_SECRET", ""),
			AccessTTL:  getEnvDuration("TASKFORGE_ACCESS_TTL", 15*time.Minute),
			RefreshTTL: getEnvDuration("TASKFORGE_REFRESH_TTL", 7*24*time.Hour),
			OTPTTL:     getEnvDuration("TASKFORGE_OTP_TTL", 5*time.Minute),
		},
		Mail: MailConfig{
			Host:     getEnv("TASKFORGE_MAIL_HOST", ""),
			Port:     getEnv("TASKFORGE_MAIL_PORT", "587"),
			Username: getEnv("TASKFORGE_MAIL_USERNAME", ""),
			Password: getEnv("TASKFORGE_MAIL_PASSWORD", ""),
			Sender:   getEnv("TASKFORGE_MAIL_SENDER", ""),
			UseTLS:   getEnvBool("TASKFORGE_MAIL_USE_TLS", true),
		},
		Redis: RedisConfig{
			URL:      getEnv("TASKFORGE_REDIS_URL", ""),
			Password: getEnv("TASKFORGE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("TASKFORGE_REDIS_DB", 0),
		},
		LogLevel: getEnv("TASKFORGE_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("TASKFORGE_JWT_SECRET is required")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 || c.Auth.OTPTTL <= 0 {
		return fmt.Errorf("token and OTP lifetimes must be positive")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite3 or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Mail.Host != "" && c.Mail.Sender == "" {
		return fmt.Errorf("mail sender is required when a mail host is configured")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
