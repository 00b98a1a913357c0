// Package migration moves plaintext entries from the backing store into the
// secure store and back. Every key migrates independently: a failure leaves
// that key's plaintext untouched and never aborts the rest of a batch.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/securekv/internal/backing"
	"github.com/narvanalabs/securekv/internal/codec"
	"github.com/narvanalabs/securekv/internal/securestore"
)

// ErrorKeyDoesNotExist is the informational message attached to the vacuously
// successful result of migrating an absent key.
const ErrorKeyDoesNotExist = "key does not exist"

// Options control how a key is migrated.
type Options struct {
	// Encrypt seals the value with the crypto engine. When false the value
	// still moves into the secure store's namespace/expiry envelope, but
	// stays plaintext.
	Encrypt bool
	// ClearPlaintext removes the original plaintext entry after a
	// successful migration.
	ClearPlaintext bool
	// PreserveOnError keeps the plaintext intact when migration fails.
	// Failures always preserve plaintext regardless of this flag; it exists
	// so callers can record intent in audit logs.
	PreserveOnError bool
	// ExpiresIn sets the migrated entry's lifetime; zero means none.
	ExpiresIn time.Duration
	// Namespace is the secure-store namespace to migrate into.
	Namespace string
}

// DefaultOptions returns the options used when callers pass none: encrypt,
// clear plaintext on success, preserve it on failure.
func DefaultOptions() Options {
	return Options{Encrypt: true, ClearPlaintext: true, PreserveOnError: true}
}

// Result is the outcome of migrating one key.
type Result struct {
	Key       string `json:"key"`
	Success   bool   `json:"success"`
	Preserved bool   `json:"preserved"`
	Error     string `json:"error,omitempty"`
}

// Summary is the aggregate outcome of a batch migration.
type Summary struct {
	BatchID   string   `json:"batch_id"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Success   bool     `json:"success"`
	Results   []Result `json:"results"`
}

// Engine migrates entries between the plaintext backing store and the secure
// store.
type Engine struct {
	backing backing.Store
	secure  *securestore.Store
	logger  *slog.Logger
}

// New creates a migration engine over the given stores.
func New(b backing.Store, secure *securestore.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{backing: b, secure: secure, logger: logger}
}

// MigrateKey migrates a single plaintext key into the secure store. An
// absent key is a successful no-op. On any write failure the plaintext is
// left byte-identical and nothing is stored, even when ClearPlaintext was
// requested.
func (e *Engine) MigrateKey(key string, opts Options) Result {
	raw, ok := e.backing.Get(key)
	if !ok {
		return Result{Key: key, Success: true, Preserved: true, Error: ErrorKeyDoesNotExist}
	}

	value := codec.Decode(raw).Any()

	err := e.secure.Set(key, value, securestore.Options{
		ExpiresIn: opts.ExpiresIn,
		Namespace: opts.Namespace,
		PlainText: !opts.Encrypt,
	})
	if err != nil {
		e.logger.Error("migration failed, plaintext preserved", "key", key, "error", err)
		return Result{Key: key, Success: false, Preserved: true, Error: err.Error()}
	}

	preserved := true
	if opts.ClearPlaintext {
		e.backing.Remove(key)
		preserved = false
	}
	return Result{Key: key, Success: true, Preserved: preserved}
}

// MigrateKeys migrates each key independently. One key's failure never
// aborts or affects the others; there is no shared transaction. An empty
// input yields a vacuously successful summary.
func (e *Engine) MigrateKeys(keys []string, opts Options) Summary {
	summary := Summary{
		BatchID: uuid.NewString(),
		Total:   len(keys),
		Results: make([]Result, 0, len(keys)),
	}

	for _, key := range keys {
		result := e.MigrateKey(key, opts)
		if result.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}

	summary.Success = summary.Failed == 0
	e.logger.Info("batch migration completed",
		"batch_id", summary.BatchID,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	return summary
}

// MigrateAll migrates every backing-store key matching the given prefix. An
// empty prefix matches all keys. Secure-store envelopes are excluded from
// the scan so already-migrated entries are never migrated twice.
func (e *Engine) MigrateAll(prefix string, opts Options) Summary {
	var keys []string
	for _, k := range e.backing.Keys() {
		if strings.HasPrefix(k, securestore.EnvelopePrefix) {
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return e.MigrateKeys(keys, opts)
}

// IsMigrated reports whether the secure store holds a live entry for
// (namespace, key), regardless of whether plaintext still exists.
func (e *Engine) IsMigrated(key, namespace string) bool {
	return e.secure.Has(key, securestore.Options{Namespace: namespace})
}

// Rollback inverts a migration: the secure entry is decrypted, written back
// to the backing store as plaintext and removed from the secure store. It
// returns (false, nil) when no entry exists. A decryption failure surfaces
// as an error, since recovering that payload is rollback's entire purpose.
func (e *Engine) Rollback(key, namespace string) (bool, error) {
	opts := securestore.Options{Namespace: namespace}

	exported, err := e.secure.Export(key, opts)
	if err != nil {
		if errors.Is(err, securestore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("rolling back %q: %w", key, err)
	}

	// Bare strings go back verbatim so raw plaintext that predated the
	// migration is restored byte-identical.
	plaintext := exported
	if decoded := codec.Decode(exported); decoded.OK {
		if s, ok := decoded.Value.(string); ok {
			plaintext = s
		}
	}

	if err := e.backing.Set(key, plaintext); err != nil {
		return false, fmt.Errorf("restoring plaintext for %q: %w", key, err)
	}
	e.secure.Remove(key, opts)

	e.logger.Info("migration rolled back", "key", key, "namespace", namespace)
	return true, nil
}
