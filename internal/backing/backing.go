// Package backing defines the plaintext key-value substrate the secure store
// and migration engine operate on, together with in-memory and PostgreSQL
// implementations.
package backing

import "errors"

// ErrQuotaExceeded is returned by Set when the substrate rejects a write
// because a capacity limit has been reached.
var ErrQuotaExceeded = errors.New("backing store quota exceeded")

// Store is a synchronous string key-value store. Reads treat every failure
// mode as absence; only writes surface errors, since writes must be
// actionable by the caller.
type Store interface {
	// Get returns the value for key, or false if the key is absent.
	Get(key string) (string, bool)
	// Set writes the value for key, returning ErrQuotaExceeded if the
	// substrate is out of capacity.
	Set(key, value string) error
	// Remove deletes the key. Removing an absent key is a no-op.
	Remove(key string)
	// Keys returns all keys in lexical order.
	Keys() []string
	// Len returns the number of stored keys.
	Len() int
}
