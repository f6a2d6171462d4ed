package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FileStore persists secrets in a JSON file with 0600 permissions. It is the
// fallback for environments without an OS credential manager (containers,
// CI). Writes hold a lock file so concurrent processes sharing the same path
// do not clobber each other, and go through a temp file plus rename so a
// crashed write never leaves a truncated file behind.
type FileStore struct {
	path string
}

// NewFileStore creates a Store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(key string) (string, error) {
	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

func (s *FileStore) Set(key, value string) error {
	return s.update(func(values map[string]string) {
		values[key] = value
	})
}

func (s *FileStore) Delete(key string) error {
	return s.update(func(values map[string]string) {
		delete(values, key)
	})
}

// load reads the secret file. A missing file is an empty store, not an error.
func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse secret file: %w", err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

// update applies mutate to the stored map under the file lock and writes the
// result back atomically.
func (s *FileStore) update(mutate func(map[string]string)) error {
	lock, err := acquireFileLock(s.path)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			fmt.Fprintf(os.Stderr, "failed to release lock: %v\n", releaseErr)
		}
	}()

	// Re-read inside the lock so concurrent writers for other keys are
	// preserved. A corrupt file is reset rather than wedging every write.
	values, err := s.load()
	if err != nil {
		values = map[string]string{}
	}

	mutate(values)

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, s.path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			return fmt.Errorf(
				"failed to rename temp file: %v; additionally failed to remove temp file: %w",
				err,
				removeErr,
			)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
