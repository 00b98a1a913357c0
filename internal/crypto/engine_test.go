package crypto

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T, suite Suite) *Engine {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	engine, err := NewEngine(&Config{Key: key, Suite: suite}, testLogger())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

// Encrypting and then decrypting any plaintext returns the original value,
// for both cipher suites.
func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, suite := range []Suite{SuiteAESGCM, SuiteChaCha20Poly1305} {
		t.Run(string(suite), func(t *testing.T) {
			engine := newTestEngine(t, suite)

			parameters := gopter.DefaultTestParameters()
			parameters.MinSuccessfulTests = 100
			properties := gopter.NewProperties(parameters)

			properties.Property("decrypt inverts encrypt", prop.ForAll(
				func(plaintext []byte) bool {
					ciphertext, nonce, err := engine.Encrypt(plaintext)
					if err != nil {
						t.Logf("encryption failed: %v", err)
						return false
					}
					decrypted, err := engine.Decrypt(ciphertext, nonce)
					if err != nil {
						t.Logf("decryption failed: %v", err)
						return false
					}
					return bytes.Equal(plaintext, decrypted)
				},
				gen.SliceOf(gen.UInt8()).Map(func(vals []uint8) []byte {
					result := make([]byte, len(vals))
					for i, v := range vals {
						result[i] = byte(v)
					}
					return result
				}),
			))

			properties.TestingRun(t)
		})
	}
}

// Every encryption uses a fresh nonce, so identical plaintexts never produce
// identical ciphertexts.
func TestFreshNoncePerEncrypt(t *testing.T) {
	engine := newTestEngine(t, SuiteAESGCM)

	plaintext := []byte("same input")
	ct1, n1, err := engine.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("first encrypt failed: %v", err)
	}
	ct2, n2, err := engine.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("second encrypt failed: %v", err)
	}

	if bytes.Equal(n1, n2) {
		t.Error("nonce reused across encryptions")
	}
	if bytes.Equal(ct1, ct2) {
		t.Error("identical ciphertexts for identical plaintexts")
	}
}

func TestDecryptFailsClosed(t *testing.T) {
	engine := newTestEngine(t, SuiteAESGCM)

	ciphertext, nonce, err := engine.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := make([]byte, len(ciphertext))
		copy(tampered, ciphertext)
		tampered[0] ^= 0xff
		if _, err := engine.Decrypt(tampered, nonce); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("got %v, want ErrDecryptionFailed", err)
		}
	})

	t.Run("wrong nonce size", func(t *testing.T) {
		if _, err := engine.Decrypt(ciphertext, []byte{1, 2, 3}); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("got %v, want ErrDecryptionFailed", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other := newTestEngine(t, SuiteAESGCM)
		if _, err := other.Decrypt(ciphertext, nonce); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("got %v, want ErrDecryptionFailed", err)
		}
	})
}

// Without a key the engine is unavailable: encryption passes plaintext
// through rather than failing, and decryption refuses.
func TestKeylessEngineDegradesToPassthrough(t *testing.T) {
	engine, err := NewEngine(&Config{}, testLogger())
	if err != nil {
		t.Fatalf("keyless engine should construct: %v", err)
	}

	if engine.Available() {
		t.Error("Available() = true for keyless engine")
	}

	plaintext := []byte("visible")
	out, nonce, err := engine.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("passthrough encrypt failed: %v", err)
	}
	if !bytes.Equal(out, plaintext) {
		t.Errorf("passthrough output = %q, want plaintext unchanged", out)
	}
	if nonce != nil {
		t.Errorf("passthrough nonce = %v, want nil", nonce)
	}

	if _, err := engine.Decrypt(plaintext, nil); !errors.Is(err, ErrNoKey) {
		t.Errorf("keyless Decrypt error = %v, want ErrNoKey", err)
	}
}

func TestNewEngineValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{"short key", &Config{Key: []byte("short")}, ErrInvalidKey},
		{"unknown suite", &Config{Key: make([]byte, KeySize), Suite: "rot13"}, ErrInvalidSuite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine(tt.cfg, testLogger()); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewEngine error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKeyFromBase64(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if len(key) != KeySize {
		t.Fatalf("key length = %d, want %d", len(key), KeySize)
	}

	if _, err := KeyFromBase64("not base64!!"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("KeyFromBase64 error = %v, want ErrInvalidKey", err)
	}
}
