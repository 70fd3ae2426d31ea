// Package sessionstore persists one opaque session blob per account
// username. Blobs are whatever the platform client exports; the store
// never looks inside them.
package sessionstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store handles session blob persistence under a base directory.
type Store struct {
	dir string
}

// New creates the storage directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the blob filename for a username.
func (s *Store) Path(username string) string {
	return filepath.Join(s.dir, "session_"+sanitize(username)+".json")
}

// Exists reports whether a persisted blob is present for the username.
func (s *Store) Exists(username string) bool {
	_, err := os.Stat(s.Path(username))
	return err == nil
}

// Load reads the persisted blob for a username.
func (s *Store) Load(username string) ([]byte, error) {
	blob, err := os.ReadFile(s.Path(username))
	if err != nil {
		return nil, fmt.Errorf("load session for %s: %w", username, err)
	}
	return blob, nil
}

// Save writes the blob for a username, replacing any previous one.
func (s *Store) Save(username string, blob []byte) error {
	if err := os.WriteFile(s.Path(username), blob, 0600); err != nil {
		return fmt.Errorf("save session for %s: %w", username, err)
	}
	return nil
}

// Remove deletes the persisted blob. Removing a missing blob is not an
// error.
func (s *Store) Remove(username string) error {
	err := os.Remove(s.Path(username))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session for %s: %w", username, err)
	}
	return nil
}

// sanitize keeps usernames from escaping the storage directory.
func sanitize(username string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.', ' ':
			return '_'
		}
		return r
	}, username)
}
