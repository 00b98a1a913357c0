// Package securestore provides an encrypted, namespaced, expiring key-value
// facade over a plaintext backing store. Values are serialized, sealed by the
// crypto engine and persisted as JSON envelopes under a reserved key prefix.
package securestore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/narvanalabs/securekv/internal/backing"
	"github.com/narvanalabs/securekv/internal/codec"
	"github.com/narvanalabs/securekv/internal/crypto"
)

// EnvelopePrefix marks backing-store keys that hold secure-store envelopes.
// Migration uses it to keep already-migrated entries out of plaintext scans.
const EnvelopePrefix = "securekv:"

var (
	// ErrStorageWrite is returned when the backing store rejects a write.
	ErrStorageWrite = errors.New("backing store write failed")
	// ErrInvalidNamespace is returned for namespace names that would allow
	// cross-namespace key collisions.
	ErrInvalidNamespace = errors.New("invalid namespace")
	// ErrNotFound is returned by Export when no live entry exists.
	ErrNotFound = errors.New("entry not found")
)

// StoredEntry is the persisted unit: the serialized value sealed by the
// crypto engine, plus the metadata needed to open and expire it.
type StoredEntry struct {
	Key        string     `json:"key"`
	Ciphertext string     `json:"ciphertext"`
	Nonce      string     `json:"nonce,omitempty"`
	Encrypted  bool       `json:"encrypted"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Namespace  string     `json:"namespace,omitempty"`
}

// Options control a single secure-store operation.
type Options struct {
	// ExpiresIn sets the entry's lifetime; zero means no expiration.
	ExpiresIn time.Duration
	// Namespace partitions the key space; empty is the default namespace.
	Namespace string
	// PlainText skips encryption for this entry even when the engine holds
	// a key. Used for values classified as non-sensitive.
	PlainText bool
}

// Store is the secure key-value facade. It holds no state of its own beyond
// the injected collaborators; all persistence goes through the backing store.
type Store struct {
	backing backing.Store
	engine  *crypto.Engine
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a secure store over the given backing store and crypto engine.
func New(b backing.Store, engine *crypto.Engine, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backing: b,
		engine:  engine,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Encrypting reports whether values are actually encrypted at rest, i.e.
// whether the crypto engine holds key material.
func (s *Store) Encrypting() bool {
	return s.engine.Available()
}

// Set serializes, seals and stores value under (namespace, key). A fresh
// nonce is generated on every call, including overwrites. Backing-store
// capacity failures are wrapped in ErrStorageWrite.
func (s *Store) Set(key string, value any, opts Options) error {
	if err := validateNamespace(opts.Namespace); err != nil {
		return err
	}

	encoded, err := codec.Encode(value)
	if err != nil {
		return fmt.Errorf("serializing value for %q: %w", key, err)
	}

	entry := StoredEntry{
		Key:       key,
		Namespace: opts.Namespace,
	}

	if opts.PlainText || !s.engine.Available() {
		entry.Ciphertext = base64.StdEncoding.EncodeToString([]byte(encoded))
	} else {
		ciphertext, nonce, err := s.engine.Encrypt([]byte(encoded))
		if err != nil {
			return fmt.Errorf("encrypting %q: %w", key, err)
		}
		entry.Ciphertext = base64.StdEncoding.EncodeToString(ciphertext)
		entry.Nonce = base64.StdEncoding.EncodeToString(nonce)
		entry.Encrypted = true
	}

	if opts.ExpiresIn > 0 {
		expires := s.now().Add(opts.ExpiresIn)
		entry.ExpiresAt = &expires
	}

	envelope, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling envelope for %q: %w", key, err)
	}

	if err := s.backing.Set(storageKey(opts.Namespace, key), string(envelope)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}

// Get returns the stored value, or (nil, false) when the entry is absent,
// expired or fails authentication. A decryption failure is operationally
// equivalent to absence on the read path, but is logged distinctly so
// tampering remains observable.
func (s *Store) Get(key string, opts Options) (any, bool) {
	text, err := s.Export(key, opts)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) || errors.Is(err, crypto.ErrNoKey) {
			s.logger.Warn("treating undecryptable entry as absent",
				"key", key,
				"namespace", opts.Namespace,
				"error", err,
			)
		}
		return nil, false
	}
	return codec.Decode(text).Any(), true
}

// Export returns the serialized plaintext of a live entry. Unlike Get it
// surfaces decryption failures, which rollback depends on.
func (s *Store) Export(key string, opts Options) (string, error) {
	entry, ok := s.loadEntry(key, opts)
	if !ok {
		return "", ErrNotFound
	}

	raw, err := base64.StdEncoding.DecodeString(entry.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: corrupt ciphertext encoding", crypto.ErrDecryptionFailed)
	}

	if !entry.Encrypted {
		return string(raw), nil
	}

	nonce, err := base64.StdEncoding.DecodeString(entry.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: corrupt nonce encoding", crypto.ErrDecryptionFailed)
	}

	plaintext, err := s.engine.Decrypt(raw, nonce)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Has reports whether a live entry exists for (namespace, key).
func (s *Store) Has(key string, opts Options) bool {
	_, ok := s.loadEntry(key, opts)
	return ok
}

// Remove deletes the entry for (namespace, key). Removing an absent entry is
// a no-op.
func (s *Store) Remove(key string, opts Options) {
	if validateNamespace(opts.Namespace) != nil {
		return
	}
	s.backing.Remove(storageKey(opts.Namespace, key))
}

// Keys returns the live entry keys in the given namespace, sorted.
func (s *Store) Keys(opts Options) []string {
	if validateNamespace(opts.Namespace) != nil {
		return nil
	}

	prefix := storageKey(opts.Namespace, "")
	var keys []string
	for _, k := range s.backing.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		entry, ok := s.parseLive(k)
		if !ok {
			continue
		}
		keys = append(keys, entry.Key)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every entry in the given namespace, or every secure-store
// entry globally when the namespace is empty.
func (s *Store) Clear(opts Options) {
	if validateNamespace(opts.Namespace) != nil {
		return
	}

	prefix := EnvelopePrefix
	if opts.Namespace != "" {
		prefix = storageKey(opts.Namespace, "")
	}
	for _, k := range s.backing.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.backing.Remove(k)
		}
	}
}

// Namespace returns a view of the store scoped to the given namespace. The
// view shares the backing store and crypto engine.
func (s *Store) Namespace(name string) (*Scoped, error) {
	if err := validateNamespace(name); err != nil {
		return nil, err
	}
	return &Scoped{store: s, name: name}, nil
}

// CleanupExpired physically removes every expired entry and returns the
// count removed. Expiration is otherwise checked lazily on read; there are
// no background sweeps.
func (s *Store) CleanupExpired() int {
	removed := 0
	for _, k := range s.backing.Keys() {
		if !strings.HasPrefix(k, EnvelopePrefix) {
			continue
		}
		raw, ok := s.backing.Get(k)
		if !ok {
			continue
		}
		var entry StoredEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if s.expired(&entry) {
			s.backing.Remove(k)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("removed expired entries", "count", removed)
	}
	return removed
}

// loadEntry reads and parses the envelope for (namespace, key), returning
// false for absent, corrupt or expired entries.
func (s *Store) loadEntry(key string, opts Options) (*StoredEntry, bool) {
	if validateNamespace(opts.Namespace) != nil {
		return nil, false
	}
	return s.parseLive(storageKey(opts.Namespace, key))
}

// parseLive reads a raw backing key and returns its envelope if live.
func (s *Store) parseLive(storageKey string) (*StoredEntry, bool) {
	raw, ok := s.backing.Get(storageKey)
	if !ok {
		return nil, false
	}
	var entry StoredEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		s.logger.Warn("treating corrupt envelope as absent", "storage_key", storageKey, "error", err)
		return nil, false
	}
	if s.expired(&entry) {
		return nil, false
	}
	return &entry, true
}

func (s *Store) expired(entry *StoredEntry) bool {
	return entry.ExpiresAt != nil && s.now().After(*entry.ExpiresAt)
}

// storageKey maps (namespace, key) onto the backing store's key space.
// Namespaces are colon-free, so distinct namespaces can never collide.
func storageKey(namespace, key string) string {
	return EnvelopePrefix + namespace + ":" + key
}

func validateNamespace(name string) error {
	if strings.Contains(name, ":") {
		return fmt.Errorf("%w: %q must not contain ':'", ErrInvalidNamespace, name)
	}
	return nil
}
