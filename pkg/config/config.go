// Package config provides environment-based configuration for the securekv
// service, with an optional YAML file overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	// Backing store; empty DSN selects the in-memory store.
	DatabaseDSN string `yaml:"database_dsn"`

	// Encryption
	// EncryptionKey is the base64-encoded 32-byte symmetric key. Empty
	// leaves the crypto engine unavailable and values stored in plaintext.
	EncryptionKey string `yaml:"encryption_key"`
	// CipherSuite is "aes-gcm" (default) or "chacha20-poly1305".
	CipherSuite string `yaml:"cipher_suite"`

	// Authentication for the admin API
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`

	// Server configuration
	APIHost         string        `yaml:"api_host"`
	APIPort         int           `yaml:"api_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Backup holds encrypted-backup key material.
	Backup BackupConfig `yaml:"backup"`
}

// BackupConfig holds age key material for encrypted backup export/import.
type BackupConfig struct {
	// AgeRecipient is the age public key backups are sealed to.
	// Format: age1... (Bech32 encoded)
	AgeRecipient string `yaml:"age_recipient"`
	// AgeIdentity is the age private key for restoring sealed backups.
	// Format: AGE-SECRET-KEY-1... (Bech32 encoded)
	AgeIdentity string `yaml:"age_identity"`
}

// Load reads configuration from the optional YAML file named by
// SECUREKV_CONFIG, then overlays environment variables on top.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SECUREKV_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.DatabaseDSN = getEnv("DATABASE_URL", cfg.DatabaseDSN)
	cfg.EncryptionKey = getEnv("SECUREKV_ENCRYPTION_KEY", cfg.EncryptionKey)
	cfg.CipherSuite = getEnv("SECUREKV_CIPHER_SUITE", cfg.CipherSuite)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTExpiry = getDurationEnv("JWT_EXPIRY", cfg.JWTExpiry)
	cfg.APIHost = getEnv("API_HOST", cfg.APIHost)
	cfg.APIPort = getIntEnv("API_PORT", cfg.APIPort)
	cfg.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.Backup.AgeRecipient = getEnv("BACKUP_AGE_RECIPIENT", cfg.Backup.AgeRecipient)
	cfg.Backup.AgeIdentity = getEnv("BACKUP_AGE_IDENTITY", cfg.Backup.AgeIdentity)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch c.CipherSuite {
	case "", "aes-gcm", "chacha20-poly1305":
	default:
		return fmt.Errorf("unknown cipher suite %q", c.CipherSuite)
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development. It
// does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	cfg := defaults()
	cfg.JWTSecret = getEnv("JWT_SECRET", "development-secret-key-min-32-chars")
	return cfg
}

func defaults() *Config {
	return &Config{
		DatabaseDSN:     "",
		CipherSuite:     "aes-gcm",
		JWTExpiry:       24 * time.Hour,
		APIHost:         "0.0.0.0",
		APIPort:         8080,
		ShutdownTimeout: 30 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
