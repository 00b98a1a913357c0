package migration

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/narvanalabs/securekv/internal/codec"
)

// Migrating distinct keys concurrently behaves like migrating them one at a
// time: every key ends up readable through the secure store with its
// plaintext cleared.
func TestConcurrentMigrationIndependence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent distinct-key migrations are independent", prop.ForAll(
		func(count int) bool {
			f := newFixture(t)

			keys := make([]string, count)
			for i := range keys {
				keys[i] = fmt.Sprintf("entry-%d", i)
				f.backing.Set(keys[i], fmt.Sprintf("value-%d", i))
			}

			var wg sync.WaitGroup
			results := make([]Result, count)
			for i, key := range keys {
				wg.Add(1)
				go func(i int, key string) {
					defer wg.Done()
					results[i] = f.engine.MigrateKey(key, DefaultOptions())
				}(i, key)
			}
			wg.Wait()

			for i, key := range keys {
				if !results[i].Success {
					t.Logf("migration of %s failed: %s", key, results[i].Error)
					return false
				}
				if !f.engine.IsMigrated(key, "") {
					t.Logf("%s not migrated", key)
					return false
				}
				if _, ok := f.backing.Memory.Get(key); ok {
					t.Logf("%s plaintext not cleared", key)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

// A roundtrip through migrate and rollback restores a value that decodes to
// the same thing the original plaintext decoded to. JSON-parseable input may
// be re-serialized, so the guarantee is deserialization equivalence rather
// than byte identity.
func TestMigrateRollbackRoundTripProperty(t *testing.T) {
	f := newFixture(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("rollback inverts migrate", prop.ForAll(
		func(key, value string) bool {
			if key == "" {
				return true
			}
			f.backing.Set(key, value)

			if r := f.engine.MigrateKey(key, DefaultOptions()); !r.Success {
				t.Logf("migration failed: %s", r.Error)
				return false
			}
			rolledBack, err := f.engine.Rollback(key, "")
			if err != nil || !rolledBack {
				t.Logf("rollback = %v, %v", rolledBack, err)
				return false
			}

			restored, ok := f.backing.Memory.Get(key)
			if !ok {
				return false
			}
			return reflect.DeepEqual(codec.Decode(restored).Any(), codec.Decode(value).Any())
		},
		gen.AlphaString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
