package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-secret-that-is-at-least-32-chars")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.APIPort)
	}
	if cfg.CipherSuite != "aes-gcm" {
		t.Errorf("CipherSuite = %q, want aes-gcm", cfg.CipherSuite)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("JWTExpiry = %v, want 24h", cfg.JWTExpiry)
	}
	if cfg.DatabaseDSN != "" {
		t.Errorf("DatabaseDSN = %q, want empty (in-memory store)", cfg.DatabaseDSN)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-secret-that-is-at-least-32-chars")
	t.Setenv("API_PORT", "9090")
	t.Setenv("SECUREKV_CIPHER_SUITE", "chacha20-poly1305")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.CipherSuite != "chacha20-poly1305" {
		t.Errorf("CipherSuite = %q, want chacha20-poly1305", cfg.CipherSuite)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
}

func TestLoadYAMLOverlayUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "api_port: 7070\ncipher_suite: chacha20-poly1305\njwt_secret: yaml-secret-that-is-at-least-32-chars\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("SECUREKV_CONFIG", path)
	t.Setenv("API_PORT", "9090") // env wins over the file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want env override 9090", cfg.APIPort)
	}
	if cfg.CipherSuite != "chacha20-poly1305" {
		t.Errorf("CipherSuite = %q, want file value", cfg.CipherSuite)
	}
	if cfg.JWTSecret != "yaml-secret-that-is-at-least-32-chars" {
		t.Errorf("JWTSecret = %q, want file value", cfg.JWTSecret)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "too-short" }, "at least 32 characters"},
		{"unknown cipher suite", func(c *Config) { c.CipherSuite = "rot13" }, "unknown cipher suite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.JWTSecret = "a-secret-that-is-at-least-32-chars"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Error("Load accepted a too-short JWT secret")
	}
}
