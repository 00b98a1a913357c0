// Package recommend classifies plaintext backing-store keys by sensitivity
// and proposes per-key migration configuration. Classification is purely
// name-pattern based; values are never inspected.
package recommend

import (
	"sort"
	"strings"
	"time"

	"github.com/narvanalabs/securekv/internal/backing"
	"github.com/narvanalabs/securekv/internal/migration"
	"github.com/narvanalabs/securekv/internal/securestore"
)

// Priority ranks how urgently a key should be migrated.
type Priority string

const (
	// PriorityCritical marks credential-like keys: always encrypted, with
	// a bounded lifetime.
	PriorityCritical Priority = "critical"
	// PriorityImportant marks personal or financial data.
	PriorityImportant Priority = "important"
	// PriorityLow marks presentation and cache data, migrated unencrypted.
	PriorityLow Priority = "low"
)

// criticalTTL bounds the lifetime proposed for credential-like entries.
const criticalTTL = 30 * 24 * time.Hour

// Recommendation proposes migration options for one plaintext key.
type Recommendation struct {
	Key      string            `json:"key"`
	Priority Priority          `json:"priority"`
	Options  migration.Options `json:"options"`
}

var (
	criticalPatterns  = []string{"token", "password", "secret", "credential", "auth", "key"}
	importantPatterns = []string{"user", "profile", "financial", "budget", "account", "transaction"}
	lowPatterns       = []string{"theme", "ui-", "cache-", "draft"}
)

// Recommendations inspects the backing store's key names and returns one
// recommendation per classifiable key, ordered critical before important
// before low (stable by key within a tier). Secure-store envelopes and
// unclassifiable keys produce no recommendation. An empty store yields an
// empty list.
func Recommendations(st backing.Store) []Recommendation {
	var recs []Recommendation

	for _, key := range st.Keys() {
		if strings.HasPrefix(key, securestore.EnvelopePrefix) {
			continue
		}
		priority, ok := classify(key)
		if !ok {
			continue
		}
		recs = append(recs, Recommendation{
			Key:      key,
			Priority: priority,
			Options:  optionsFor(priority),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := rank(recs[i].Priority), rank(recs[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return recs[i].Key < recs[j].Key
	})
	return recs
}

func classify(key string) (Priority, bool) {
	name := strings.ToLower(key)
	for _, p := range criticalPatterns {
		if strings.Contains(name, p) {
			return PriorityCritical, true
		}
	}
	for _, p := range importantPatterns {
		if strings.Contains(name, p) {
			return PriorityImportant, true
		}
	}
	for _, p := range lowPatterns {
		if strings.Contains(name, p) {
			return PriorityLow, true
		}
	}
	return "", false
}

func optionsFor(priority Priority) migration.Options {
	opts := migration.DefaultOptions()
	switch priority {
	case PriorityCritical:
		opts.ExpiresIn = criticalTTL
	case PriorityLow:
		opts.Encrypt = false
	}
	return opts
}

func rank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityImportant:
		return 1
	default:
		return 2
	}
}
