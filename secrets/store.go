// Package secrets provides durable, namespaced persistence for the one secret
// this application keeps on device: the OAuth refresh token. Two backends are
// available, the OS credential manager and a locked JSON file for headless
// environments.
package secrets

// refreshTokenKeySuffix is the fixed logical key name under which the refresh
// token is stored. It is always prefixed with the application scheme so that
// multiple app variants on the same device do not collide.
const refreshTokenKeySuffix = "api.refresh_token"

// Key derives the storage key for the given application scheme,
// e.g. Key("app") == "app.api.refresh_token".
func Key(appScheme string) string {
	return appScheme + "." + refreshTokenKeySuffix
}

// Store persists a single secret value per key.
//
// Get returns ("", nil) when the key is simply absent; an error means the
// storage layer itself failed. Delete is idempotent: removing an absent key
// succeeds.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemStore is an in-memory Store used in tests and throwaway sessions.
type MemStore struct {
	values map[string]string
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, error) {
	return s.values[key], nil
}

func (s *MemStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}

func (s *MemStore) Delete(key string) error {
	delete(s.values, key)
	return nil
}
