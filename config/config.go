// Package config provides application configuration management.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Backend connection
	BaseURL           string
	RequestTimeout    time.Duration
	StreamIdleTimeout time.Duration
	LoginURL          string

	// Credential persistence
	CredentialDriver    string
	CredentialDSN       string
	CredentialKeyPrefix string
	StatePath           string

	// Redis / events configuration
	RedisAddr        string
	RedisUsername    string
	RedisPassword    string
	RedisDB          int
	RedisTLSEnabled  bool
	RedisTLSInsecure bool
	EventsChannel    string

	// Diagnostics
	LogLevel    string
	MetricsAddr string

	// Stub backend (cmd/powerstub)
	ServerPort   string
	JWTSecret    string
	TokenTTL     time.Duration
	StreamChunks int
}

// DefaultDSN is the credential location used when a driver is chosen
// without one.
func DefaultDSN(driver, statePath string) string {
	switch driver {
	case "file":
		return filepath.Join(statePath, "credentials.yaml")
	case "sqlite":
		return filepath.Join(statePath, "credentials.db")
	case "postgres":
		return os.Getenv("POSTGRES_DSN")
	}
	return ""
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	statePath := getEnv("STATE_PATH", defaultStatePath())
	driver := getEnv("CREDENTIAL_STORE_DRIVER", "file")
	dsn := getEnv("CREDENTIAL_STORE_DSN", "")
	if dsn == "" {
		dsn = DefaultDSN(driver, statePath)
	}
	return &Config{
		BaseURL:             getEnv("POWER_API_BASE_URL", "http://localhost:8081"),
		RequestTimeout:      getEnvDuration("POWER_REQUEST_TIMEOUT", 60*time.Second),
		StreamIdleTimeout:   getEnvDuration("POWER_STREAM_IDLE_TIMEOUT", 5*time.Minute),
		LoginURL:            getEnv("POWER_LOGIN_URL", "/login"),
		CredentialDriver:    driver,
		CredentialDSN:       dsn,
		CredentialKeyPrefix: getEnv("CREDENTIAL_KEY_PREFIX", "power:credentials:"),
		StatePath:           statePath,
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisUsername:       getEnv("REDIS_USERNAME", ""),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		RedisTLSEnabled:     getEnvBool("REDIS_TLS_ENABLED", false),
		RedisTLSInsecure:    getEnvBool("REDIS_TLS_INSECURE_SKIP_VERIFY", false),
		EventsChannel:       getEnv("EVENTS_CHANNEL", "power-client-events"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		MetricsAddr:         getEnv("METRICS_ADDR", ""),
		ServerPort:          getEnv("SERVER_PORT", "8081"),
		JWTSecret:           getEnv("STUB_JWT_SECRET", "power-stub-secret"),
		TokenTTL:            getEnvDuration("STUB_TOKEN_TTL", 2*time.Hour),
		StreamChunks:        getEnvInt("STUB_STREAM_CHUNKS", 4),
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./.pwr"
	}
	return filepath.Join(dir, "pwr")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s: %s, using default %s", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s: %s, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "y":
			return true
		case "0", "false", "no", "n":
			return false
		default:
			log.Printf("Invalid bool for %s: %s, using default %t", key, value, defaultValue)
		}
	}
	return defaultValue
}
