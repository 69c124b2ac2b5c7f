// Package vault is the durable store for the pair of session tokens.
//
// Both values live under fixed keys in a single JSON file beneath the
// storage path, so they survive host restarts. Writes are synchronous:
// a Set call does not return until the value is on disk, which is what
// lets the message channel guarantee its persist ordering.
package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// Fixed storage keys for the token pair.
const (
	KeyAccessToken  = "auth.accessToken"
	KeyRefreshToken = "auth.refreshToken"
)

const tokensFile = "tokens.json"

// Store holds the session token pair.
type Store struct {
	mu      sync.Mutex
	dir     string
	access  string
	refresh string
}

// New opens the store rooted at dir, loading any previously persisted
// tokens. The directory is created if missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create vault dir: %w", err)
	}

	s := &Store{dir: dir}

	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	var stored map[string]string
	if err := sonic.ConfigStd.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse vault: %w", err)
	}
	s.access = stored[KeyAccessToken]
	s.refresh = stored[KeyRefreshToken]

	return s, nil
}

// AccessToken returns the current access token, empty if none stored.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// RefreshToken returns the current refresh token, empty if none stored.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// Tokens returns both tokens as one consistent read.
func (s *Store) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh
}

// SetAccessToken overwrites and persists the access token. The call
// completes only after the value is durably written.
func (s *Store) SetAccessToken(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = value
	return s.flushLocked()
}

// SetRefreshToken overwrites and persists the refresh token.
func (s *Store) SetRefreshToken(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = value
	return s.flushLocked()
}

// flushLocked writes the current pair to disk. Write-then-rename keeps a
// crash from leaving a torn file behind. Caller must hold mu.
func (s *Store) flushLocked() error {
	data, err := sonic.ConfigStd.Marshal(map[string]string{
		KeyAccessToken:  s.access,
		KeyRefreshToken: s.refresh,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize tokens: %w", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("failed to commit vault: %w", err)
	}
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, tokensFile)
}
