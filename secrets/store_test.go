package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestKey(t *testing.T) {
	if got := Key("app"); got != "app.api.refresh_token" {
		t.Errorf("Key(\"app\") = %q, want %q", got, "app.api.refresh_token")
	}
	if Key("app") == Key("app-staging") {
		t.Errorf("different app schemes must not share a storage key")
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "secrets.json"))

	if err := store.Set("app.api.refresh_token", "r1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := store.Get("app.api.refresh_token")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "r1" {
		t.Errorf("Get = %q, want %q", value, "r1")
	}

	if err := store.Delete("app.api.refresh_token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	value, err = store.Get("app.api.refresh_token")
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if value != "" {
		t.Errorf("Get after delete = %q, want empty", value)
	}
}

func TestFileStore_AbsentKey(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "secrets.json"))

	// Missing file and missing key both read as empty without error
	value, err := store.Get("app.api.refresh_token")
	if err != nil {
		t.Fatalf("Get on missing file failed: %v", err)
	}
	if value != "" {
		t.Errorf("Get on missing file = %q, want empty", value)
	}

	// Deleting an absent key is a no-op success
	if err := store.Delete("app.api.refresh_token"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestFileStore_PreservesOtherKeys(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "secrets.json"))

	if err := store.Set(Key("app"), "r-app"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(Key("app-staging"), "r-staging"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(Key("app")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	value, err := store.Get(Key("app-staging"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "r-staging" {
		t.Errorf("Get = %q, want %q", value, "r-staging")
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store := NewFileStore(path)

	if err := store.Set(Key("app"), "r1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("Secret file permissions = %o, want 600", perm)
	}
}

func TestFileStore_CorruptFileFailsReads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	store := NewFileStore(path)
	if _, err := store.Get(Key("app")); err == nil {
		t.Errorf("Expected error reading corrupt file, got nil")
	}

	// Writes reset the corrupt file instead of wedging
	if err := store.Set(Key("app"), "r1"); err != nil {
		t.Fatalf("Set on corrupt file failed: %v", err)
	}
	value, err := store.Get(Key("app"))
	if err != nil {
		t.Fatalf("Get after reset failed: %v", err)
	}
	if value != "r1" {
		t.Errorf("Get after reset = %q, want %q", value, "r1")
	}
}

func TestFileStore_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store := NewFileStore(path)

	const goroutines = 10
	var wg sync.WaitGroup

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()

			key := Key(fmt.Sprintf("app-%d", id))
			if err := store.Set(key, fmt.Sprintf("refresh-%d", id)); err != nil {
				t.Errorf("Goroutine %d: Set failed: %v", id, err)
			}
		}(i)
	}

	wg.Wait()

	// Every writer's key must survive
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read secret file: %v", err)
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		t.Fatalf("Failed to parse secret file: %v", err)
	}
	if len(values) != goroutines {
		t.Errorf("Expected %d keys, got %d", goroutines, len(values))
	}
	for i := 0; i < goroutines; i++ {
		key := Key(fmt.Sprintf("app-%d", i))
		if values[key] != fmt.Sprintf("refresh-%d", i) {
			t.Errorf("Key %s = %q, want %q", key, values[key], fmt.Sprintf("refresh-%d", i))
		}
	}

	// Lock file must not linger
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Errorf("Lock file still exists after all writes completed")
	}
}

func TestMemStore(t *testing.T) {
	store := NewMemStore()

	if err := store.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err := store.Get("k")
	if err != nil || value != "v" {
		t.Errorf("Get = (%q, %v), want (%q, nil)", value, err, "v")
	}
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("k"); err != nil {
		t.Errorf("Second Delete failed: %v", err)
	}
}
