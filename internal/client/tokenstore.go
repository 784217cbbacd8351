package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// TokenStore persists the signed-in user's token and email. Stored tokens
// are never checked for expiry; a stale token stays until Clear.
type TokenStore interface {
	Set(token, email string) error
	// Get returns empty strings when nothing is stored.
	Get() (token, email string, err error)
	Clear() error
}

// MemoryTokenStore keeps the credential in process memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
	email string
}

func (s *MemoryTokenStore) Set(token, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.email = token, email
	return nil
}

func (s *MemoryTokenStore) Get() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.email, nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.email = "", ""
	return nil
}

// storedCredential is the on-disk layout of FileTokenStore.
type storedCredential struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// FileTokenStore keeps the credential in a JSON file readable only by its
// owner. A missing file means nothing is stored.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore returns a store backed by path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenPath returns credentials.json under the user's config
// directory.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "memorial", "credentials.json"), nil
}

// Path returns the file the store reads and writes.
func (s *FileTokenStore) Path() string {
	return s.path
}

func (s *FileTokenStore) Set(token, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(storedCredential{Token: token, Email: email}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	return writeFileAtomic(s.path, raw)
}

func (s *FileTokenStore) Get() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("read credential: %w", err)
	}

	var sc storedCredential
	if err := json.Unmarshal(raw, &sc); err != nil {
		return "", "", fmt.Errorf("decode credential %s: %w", s.path, err)
	}
	return sc.Token, sc.Email, nil
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place, so a
// reader never sees a half-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename credential file: %w", err)
	}
	return nil
}
