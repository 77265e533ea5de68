package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POWER_API_BASE_URL", "")
	t.Setenv("POWER_REQUEST_TIMEOUT", "")
	t.Setenv("CREDENTIAL_STORE_DRIVER", "")
	t.Setenv("CREDENTIAL_STORE_DSN", "")
	t.Setenv("STATE_PATH", "/tmp/pwr-state")

	cfg := Load()
	if cfg.BaseURL != "http://localhost:8081" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Fatalf("expected 60s timeout got %s", cfg.RequestTimeout)
	}
	if cfg.CredentialDriver != "file" {
		t.Fatalf("expected file driver got %q", cfg.CredentialDriver)
	}
	if cfg.CredentialDSN != filepath.Join("/tmp/pwr-state", "credentials.yaml") {
		t.Fatalf("unexpected dsn %q", cfg.CredentialDSN)
	}
	if cfg.LoginURL != "/login" {
		t.Fatalf("unexpected login url %q", cfg.LoginURL)
	}
}

func TestLoadOverridesAndInvalidValues(t *testing.T) {
	t.Setenv("POWER_API_BASE_URL", "https://power.example")
	t.Setenv("POWER_REQUEST_TIMEOUT", "not-a-duration")
	t.Setenv("POWER_STREAM_IDLE_TIMEOUT", "30s")
	t.Setenv("CREDENTIAL_STORE_DRIVER", "sqlite")
	t.Setenv("CREDENTIAL_STORE_DSN", "")
	t.Setenv("STATE_PATH", "/var/lib/pwr")
	t.Setenv("REDIS_DB", "x")
	t.Setenv("REDIS_TLS_ENABLED", "yes")

	cfg := Load()
	if cfg.BaseURL != "https://power.example" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Fatalf("invalid duration should fall back, got %s", cfg.RequestTimeout)
	}
	if cfg.StreamIdleTimeout != 30*time.Second {
		t.Fatalf("expected 30s idle timeout got %s", cfg.StreamIdleTimeout)
	}
	if cfg.CredentialDSN != filepath.Join("/var/lib/pwr", "credentials.db") {
		t.Fatalf("unexpected sqlite dsn %q", cfg.CredentialDSN)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("invalid int should fall back, got %d", cfg.RedisDB)
	}
	if !cfg.RedisTLSEnabled {
		t.Fatalf("expected tls enabled")
	}
}
