// Package crypto provides the authenticated symmetric encryption engine used
// by the secure store. It supports AES-GCM and ChaCha20-Poly1305 suites with
// a fresh random nonce per encryption, and degrades to a clearly marked
// pass-through when no key is configured.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrNoKey is returned when an operation requires a key and none is configured.
	ErrNoKey = errors.New("no encryption key configured")
	// ErrInvalidKey is returned when key material has the wrong length or encoding.
	ErrInvalidKey = errors.New("invalid key material")
	// ErrInvalidSuite is returned when an unknown cipher suite is requested.
	ErrInvalidSuite = errors.New("invalid cipher suite")
	// ErrDecryptionFailed is returned when authentication fails on decrypt,
	// which covers both tampered ciphertext and a wrong key.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Suite identifies an AEAD cipher suite.
type Suite string

const (
	// SuiteAESGCM is AES-256-GCM, the default suite.
	SuiteAESGCM Suite = "aes-gcm"
	// SuiteChaCha20Poly1305 is ChaCha20-Poly1305.
	SuiteChaCha20Poly1305 Suite = "chacha20-poly1305"
)

// KeySize is the required symmetric key length in bytes for both suites.
const KeySize = 32

// Config holds the configuration for the engine.
type Config struct {
	// Key is the 32-byte symmetric key. An empty key leaves the engine
	// unavailable: encryption degrades to pass-through.
	Key []byte
	// Suite selects the AEAD construction. Empty means SuiteAESGCM.
	Suite Suite
}

// Engine holds the process-wide key material for the lifetime of the store.
// The key is never persisted by this layer; provisioning and rotation are
// external concerns.
type Engine struct {
	aead   cipher.AEAD
	suite  Suite
	logger *slog.Logger
}

// NewEngine creates an engine from the given configuration. A nil or keyless
// configuration produces an unavailable engine rather than an error, so the
// caller can keep operating with plaintext storage (observable via Available).
func NewEngine(cfg *Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &Config{}
	}

	suite := cfg.Suite
	if suite == "" {
		suite = SuiteAESGCM
	}

	e := &Engine{suite: suite, logger: logger}

	if len(cfg.Key) == 0 {
		logger.Warn("no encryption key configured, values will be stored without encryption")
		return e, nil
	}
	if len(cfg.Key) != KeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, KeySize, len(cfg.Key))
	}

	switch suite {
	case SuiteAESGCM:
		block, err := aes.NewCipher(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("creating GCM: %w", err)
		}
		e.aead = aead
	case SuiteChaCha20Poly1305:
		aead, err := chacha20poly1305.New(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		e.aead = aead
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSuite, suite)
	}

	return e, nil
}

// Available reports whether the engine holds key material. When false,
// Encrypt passes plaintext through and Decrypt fails with ErrNoKey.
func (e *Engine) Available() bool {
	return e.aead != nil
}

// Suite returns the configured cipher suite.
func (e *Engine) Suite() Suite {
	return e.suite
}

// Encrypt seals plaintext under a fresh random nonce. When the engine is
// unavailable it returns the plaintext unchanged with a nil nonce; callers
// must record that the stored value is not encrypted.
func (e *Engine) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	if !e.Available() {
		out := make([]byte, len(plaintext))
		copy(out, plaintext)
		return out, nil, nil
	}

	nonce = make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		e.logger.Error("failed to generate nonce", "error", err)
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	return e.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens ciphertext sealed by Encrypt. Authentication failure, a
// wrong-size nonce and a missing key all fail closed.
func (e *Engine) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	if !e.Available() {
		return nil, ErrNoKey
	}
	if len(nonce) != e.aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size %d", ErrDecryptionFailed, len(nonce))
	}

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// GenerateKey generates a new random symmetric key.
func GenerateKey() ([]byte, error) {
	return RandomBytes(KeySize)
}

// RandomBytes generates n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}

// KeyFromBase64 decodes standard-base64 key material.
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}
