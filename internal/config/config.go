package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Mail     MailConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the optional Redis connection used by the session
// revocation store. When Addr is empty the server falls back to the
// in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds signing configuration for session and unlock tokens
type JWTConfig struct {
	Secret     string
	SessionTTL time.Duration
	UnlockTTL  time.Duration
	Issuer     string
}

// AuthConfig holds lockout and password-reset policy settings
type AuthConfig struct {
	MaxFailedAttempts int
	ResetTokenTTL     time.Duration
	AdminEmail        string
	FrontendURL       string
}

// MailConfig holds outbound SMTP settings for the notifier
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "docsflow"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			SessionTTL: getDurationEnv("JWT_SESSION_TTL", 24*time.Hour),
			UnlockTTL:  getDurationEnv("JWT_UNLOCK_TTL", 24*time.Hour),
			Issuer:     getEnv("JWT_ISSUER", "docsflow"),
		},
		Auth: AuthConfig{
			MaxFailedAttempts: getIntEnv("AUTH_MAX_FAILED_ATTEMPTS", 5),
			ResetTokenTTL:     getDurationEnv("AUTH_RESET_TOKEN_TTL", time.Hour),
			AdminEmail:        getEnv("AUTH_ADMIN_EMAIL", ""),
			FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_SERVER", "localhost"),
			Port:     getEnv("MAIL_PORT", "587"),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			FromName: getEnv("MAIL_FROM_NAME", "DocsFlow"),
		},
	}
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.DBName +
		" sslmode=" + d.SSLMode
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv returns integer from environment variable or default
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getDurationEnv returns duration from environment variable or default
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
