// Package sessions persists sessions as JSON documents under
// $COCODE_HOME/sessions and serves per-session artifact directories.
package sessions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cocodehq/cocode/pkg/models"
)

// Store is a file-backed session store.
type Store struct {
	dir string
}

// DefaultDir returns $COCODE_HOME/sessions, defaulting to
// $HOME/.cocode/sessions.
func DefaultDir() string {
	if home := os.Getenv("COCODE_HOME"); home != "" {
		return filepath.Join(home, "sessions")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cocode", "sessions")
}

// NewStore creates a store rooted at dir (DefaultDir when empty).
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// SessionDir returns the artifact directory for a session (tool-results,
// session memory), creating it.
func (s *Store) SessionDir(id string) (string, error) {
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Save persists a session. Ephemeral sessions are skipped.
func (s *Store) Save(session *models.Session) error {
	if session.Ephemeral {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return os.WriteFile(s.path(session.ID), data, 0o600)
}

// Get loads a session by id.
func (s *Store) Get(id string) (*models.Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &session, nil
}

// Delete removes a session and its artifact directory.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.RemoveAll(filepath.Join(s.dir, id))
}

// List returns stored sessions sorted by last activity, newest first.
func (s *Store) List() ([]*models.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []*models.Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		session, err := s.Get(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
