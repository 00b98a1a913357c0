package backing

import (
	"sort"
	"sync"
)

// Memory is an in-memory Store guarded by an RWMutex. It is the substrate
// used in tests and embedded deployments. Optional quotas make it possible
// to exercise capacity failures without a real constrained store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string

	// MaxEntries caps the number of distinct keys; zero means unlimited.
	MaxEntries int
	// MaxBytes caps the total size of keys plus values; zero means unlimited.
	MaxBytes int
}

// NewMemory creates an empty in-memory store with no quotas.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

// Get returns the value for key, or false if absent.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// Set writes the value for key, enforcing the configured quotas.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.entries[key]

	if m.MaxEntries > 0 && !exists && len(m.entries) >= m.MaxEntries {
		return ErrQuotaExceeded
	}
	if m.MaxBytes > 0 {
		size := m.sizeLocked() + len(key) + len(value)
		if exists {
			size -= len(key) + len(old)
		}
		if size > m.MaxBytes {
			return ErrQuotaExceeded
		}
	}

	m.entries[key] = value
	return nil
}

// Remove deletes the key.
func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Keys returns all keys in lexical order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Snapshot returns a copy of the current contents. Test helper.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

func (m *Memory) sizeLocked() int {
	size := 0
	for k, v := range m.entries {
		size += len(k) + len(v)
	}
	return size
}
