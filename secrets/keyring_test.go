package secrets

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore()

	// Absent key reads as empty, not as an error
	value, err := store.Get(Key("app"))
	if err != nil {
		t.Fatalf("Get of absent key failed: %v", err)
	}
	if value != "" {
		t.Errorf("Get of absent key = %q, want empty", value)
	}

	if err := store.Set(Key("app"), "r1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err = store.Get(Key("app"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "r1" {
		t.Errorf("Get = %q, want %q", value, "r1")
	}

	if err := store.Delete(Key("app")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// Idempotent: deleting again succeeds
	if err := store.Delete(Key("app")); err != nil {
		t.Errorf("Second Delete failed: %v", err)
	}

	value, err = store.Get(Key("app"))
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if value != "" {
		t.Errorf("Get after delete = %q, want empty", value)
	}
}
