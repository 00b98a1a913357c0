// Package backup snapshots the entire plaintext backing store into a
// portable JSON blob and restores it as a full replace. Blobs can optionally
// be sealed to an age recipient for offsite storage.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"filippo.io/age"
	"github.com/google/uuid"
	"github.com/narvanalabs/securekv/internal/backing"
)

var (
	// ErrInvalidRecipient is returned when an age public key cannot be parsed.
	ErrInvalidRecipient = errors.New("invalid age recipient")
	// ErrInvalidIdentity is returned when an age private key cannot be parsed.
	ErrInvalidIdentity = errors.New("invalid age identity")
)

// Service snapshots and restores the backing store.
type Service struct {
	backing backing.Store
	logger  *slog.Logger
}

// New creates a backup service over the given backing store.
func New(b backing.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backing: b, logger: logger}
}

// Create serializes every (key, rawValue) pair into one canonical JSON
// object, "{}" when the store is empty. Values are captured verbatim,
// secure-store envelopes included, never decrypted or reinterpreted.
func (s *Service) Create() (string, error) {
	snapshot := make(map[string]string)
	for _, k := range s.backing.Keys() {
		if v, ok := s.backing.Get(k); ok {
			snapshot[k] = v
		}
	}

	blob, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("serializing backup: %w", err)
	}

	s.logger.Info("backup created", "snapshot_id", uuid.NewString(), "entries", len(snapshot))
	return string(blob), nil
}

// Restore replaces the entire backing store with the blob's contents. A
// malformed blob returns false with zero mutation; parsing completes before
// any write. Restore is a full replace, not a merge.
func (s *Service) Restore(blob string) bool {
	var snapshot map[string]string
	if err := json.Unmarshal([]byte(blob), &snapshot); err != nil {
		s.logger.Warn("rejecting malformed backup blob", "error", err)
		return false
	}
	if snapshot == nil {
		// "null" parses but is not a snapshot.
		s.logger.Warn("rejecting null backup blob")
		return false
	}

	for _, k := range s.backing.Keys() {
		s.backing.Remove(k)
	}

	failed := 0
	for k, v := range snapshot {
		if err := s.backing.Set(k, v); err != nil {
			s.logger.Error("restoring entry", "key", k, "error", err)
			failed++
		}
	}

	s.logger.Info("backup restored", "entries", len(snapshot), "failed", failed)
	return failed == 0
}

// CreateEncrypted seals a snapshot blob to the given age recipient so it can
// be stored offsite without exposing plaintext values.
func (s *Service) CreateEncrypted(recipient string) ([]byte, error) {
	r, err := age.ParseX25519Recipient(recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	blob, err := s.Create()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, r)
	if err != nil {
		return nil, fmt.Errorf("sealing backup: %w", err)
	}
	if _, err := io.WriteString(w, blob); err != nil {
		return nil, fmt.Errorf("sealing backup: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("sealing backup: %w", err)
	}

	return buf.Bytes(), nil
}

// RestoreEncrypted unseals an age-encrypted snapshot with the given identity
// and restores it. Unsealing failures surface as errors; a blob that unseals
// but does not parse follows Restore's false-with-no-mutation contract.
func (s *Service) RestoreEncrypted(sealed []byte, identity string) (bool, error) {
	id, err := age.ParseX25519Identity(identity)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	r, err := age.Decrypt(bytes.NewReader(sealed), id)
	if err != nil {
		return false, fmt.Errorf("unsealing backup: %w", err)
	}
	blob, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("unsealing backup: %w", err)
	}

	return s.Restore(string(blob)), nil
}

// GenerateKeyPair generates a new age key pair for encrypted backups.
func GenerateKeyPair() (recipient, identity string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("generating age key pair: %w", err)
	}
	return id.Recipient().String(), id.String(), nil
}
