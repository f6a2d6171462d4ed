package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// keyringService is the service name under which all keys are filed in the OS
// credential manager (macOS Keychain, Windows Credential Manager, Secret
// Service on Linux).
const keyringService = "pkce-cli"

// KeyringStore persists secrets in the OS-native credential storage.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a Store backed by the OS credential manager.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService}
}

func (s *KeyringStore) Get(key string) (string, error) {
	value, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %q: %w", key, err)
	}
	return value, nil
}

func (s *KeyringStore) Set(key, value string) error {
	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("keyring set %q: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("keyring delete %q: %w", key, err)
	}
	return nil
}
