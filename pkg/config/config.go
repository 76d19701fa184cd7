package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/taskhive/taskhive/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Audit    AuditConfig

	LogLevel       observability.LogLevel
	MetricsEnabled bool
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

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis settings; Redis backs the login rate limiter and
// is optional
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds token and login-throttle settings
type AuthConfig struct {
	// TokenSecret signs access tokens; it has no default
	TokenSecret string
	TokenIssuer string
	TokenTTL    time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration

	// RestrictAdminAssignment limits ADMIN task creation to assignees in
	// the admin's own organization
	RestrictAdminAssignment bool
}

// AuditConfig holds audit retention settings
type AuditConfig struct {
	RetentionDays   int
	CleanupSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TASKHIVE_HOST", "0.0.0.0"),
			Port:            getEnv("TASKHIVE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TASKHIVE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TASKHIVE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TASKHIVE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TASKHIVE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:          getEnv("TASKHIVE_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("TASKHIVE_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("TASKHIVE_POSTGRES_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("TASKHIVE_REDIS_ADDR", ""),
			Password: getEnv("TASKHIVE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("TASKHIVE_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenSecret:             getEnv("TASKHIVE_TOKEN_SECRET", ""),
			TokenIssuer:             getEnv("TASKHIVE_TOKEN_ISSUER", "taskhive"),
			TokenTTL:                getEnvDuration("TASKHIVE_TOKEN_TTL", time.Hour),
			LoginRateLimit:          getEnvInt("TASKHIVE_LOGIN_RATE_LIMIT", 10),
			LoginRateWindow:         getEnvDuration("TASKHIVE_LOGIN_RATE_WINDOW", time.Minute),
			RestrictAdminAssignment: getEnvBool("TASKHIVE_RESTRICT_ADMIN_ASSIGNMENT", false),
		},
		Audit: AuditConfig{
			RetentionDays:   getEnvInt("TASKHIVE_AUDIT_RETENTION_DAYS", 90),
			CleanupSchedule: getEnv("TASKHIVE_AUDIT_CLEANUP_SCHEDULE", "0 3 * * *"),
		},
		LogLevel:       observability.ParseLogLevel(getEnv("TASKHIVE_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("TASKHIVE_METRICS_ENABLED", true),
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
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("token secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention must be positive")
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
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
