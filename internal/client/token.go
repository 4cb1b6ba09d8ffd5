package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenFileName = "token"

// TokenStore persists the session token in a fixed slot on disk. The token
// is treated as opaque: only presence or absence matters to callers.
type TokenStore struct {
	dir string
}

// NewTokenStore places the token slot under the user config directory.
func NewTokenStore() (*TokenStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("client: resolve config dir: %w", err)
	}
	return NewTokenStoreAt(filepath.Join(base, "quill")), nil
}

// NewTokenStoreAt places the token slot under dir.
func NewTokenStoreAt(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

// Load returns the stored token and whether one is present.
func (s *TokenStore) Load() (string, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, tokenFileName))
	if err != nil {
		return "", false
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}

	return token, true
}

func (s *TokenStore) Save(token string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("client: create token dir: %w", err)
	}

	path := filepath.Join(s.dir, tokenFileName)
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("client: write token: %w", err)
	}

	return nil
}

func (s *TokenStore) Clear() error {
	err := os.Remove(filepath.Join(s.dir, tokenFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("client: clear token: %w", err)
	}
	return nil
}
