package backup

import (
	"errors"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/narvanalabs/securekv/internal/backing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCreateRestoreRoundTrip(t *testing.T) {
	mem := backing.NewMemory()
	mem.Set("plain", "value")
	mem.Set("envelope", `{"key":"envelope","ciphertext":"abc"}`)
	svc := New(mem, testLogger())

	blob, err := svc.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	before := mem.Snapshot()
	mem.Set("mutated-after-backup", "x")

	if !svc.Restore(blob) {
		t.Fatal("Restore returned false for a blob Create produced")
	}
	if !reflect.DeepEqual(mem.Snapshot(), before) {
		t.Errorf("restored state = %v, want %v", mem.Snapshot(), before)
	}
}

func TestCreateEmptyStore(t *testing.T) {
	svc := New(backing.NewMemory(), testLogger())
	blob, err := svc.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if blob != "{}" {
		t.Errorf("empty-store blob = %q, want {}", blob)
	}
}

func TestRestoreRejectsMalformedBlob(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", "not json at all"},
		{"wrong shape", `["a","b"]`},
		{"non-string values", `{"k": 42}`},
		{"null", "null"},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := backing.NewMemory()
			mem.Set("existing", "untouched")
			svc := New(mem, testLogger())

			if svc.Restore(tt.blob) {
				t.Fatal("Restore accepted a malformed blob")
			}
			if v, ok := mem.Get("existing"); !ok || v != "untouched" {
				t.Error("malformed blob mutated the store")
			}
			if mem.Len() != 1 {
				t.Errorf("Len = %d after rejected restore, want 1", mem.Len())
			}
		})
	}
}

func TestRestoreIsFullReplace(t *testing.T) {
	mem := backing.NewMemory()
	mem.Set("stale", "should disappear")
	mem.Set("shared", "old")
	svc := New(mem, testLogger())

	if !svc.Restore(`{"shared": "new", "fresh": "added"}`) {
		t.Fatal("Restore failed")
	}

	want := map[string]string{"shared": "new", "fresh": "added"}
	if got := mem.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("state after restore = %v, want %v", got, want)
	}
}

func TestRestoreEmptyObjectClearsStore(t *testing.T) {
	mem := backing.NewMemory()
	mem.Set("a", "1")
	svc := New(mem, testLogger())

	if !svc.Restore("{}") {
		t.Fatal("Restore of {} failed")
	}
	if mem.Len() != 0 {
		t.Errorf("Len = %d after restoring {}, want 0", mem.Len())
	}
}

func TestEncryptedBackupRoundTrip(t *testing.T) {
	recipient, identity, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	if !strings.HasPrefix(recipient, "age1") {
		t.Errorf("recipient = %q, want age1... public key", recipient)
	}
	if !strings.HasPrefix(identity, "AGE-SECRET-KEY-") {
		t.Errorf("identity = %q, want AGE-SECRET-KEY-... private key", identity)
	}

	mem := backing.NewMemory()
	mem.Set("token", "sk-123")
	svc := New(mem, testLogger())

	sealed, err := svc.CreateEncrypted(recipient)
	if err != nil {
		t.Fatalf("CreateEncrypted failed: %v", err)
	}
	if strings.Contains(string(sealed), "sk-123") {
		t.Error("sealed backup leaks plaintext")
	}

	before := mem.Snapshot()
	mem.Remove("token")

	ok, err := svc.RestoreEncrypted(sealed, identity)
	if err != nil {
		t.Fatalf("RestoreEncrypted failed: %v", err)
	}
	if !ok {
		t.Fatal("RestoreEncrypted returned false")
	}
	if !reflect.DeepEqual(mem.Snapshot(), before) {
		t.Errorf("restored state = %v, want %v", mem.Snapshot(), before)
	}
}

func TestEncryptedBackupKeyValidation(t *testing.T) {
	svc := New(backing.NewMemory(), testLogger())

	if _, err := svc.CreateEncrypted("not-a-recipient"); !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("CreateEncrypted error = %v, want ErrInvalidRecipient", err)
	}
	if _, err := svc.RestoreEncrypted([]byte("x"), "not-an-identity"); !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("RestoreEncrypted error = %v, want ErrInvalidIdentity", err)
	}
}

func TestRestoreEncryptedWrongIdentity(t *testing.T) {
	recipient, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	_, otherIdentity, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	mem := backing.NewMemory()
	mem.Set("k", "v")
	svc := New(mem, testLogger())

	sealed, err := svc.CreateEncrypted(recipient)
	if err != nil {
		t.Fatalf("CreateEncrypted failed: %v", err)
	}

	if _, err := svc.RestoreEncrypted(sealed, otherIdentity); err == nil {
		t.Error("unsealing with the wrong identity succeeded")
	}
	if v, _ := mem.Get("k"); v != "v" {
		t.Error("failed unseal mutated the store")
	}
}
