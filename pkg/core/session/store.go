package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/angelospk/subdivx-dl/internal/constants"
)

// timeLayout is a naive local ISO-8601 timestamp.
const timeLayout = "2006-01-02T15:04:05.999999"

// State is the negotiated session with the site.
type State struct {
	WebVersion string
	Cookie     string
	Token      string
	ExpiresAt  time.Time
}

// fileState is the on-disk JSON form of State.
type fileState struct {
	WebVersion     string `json:"web_version"`
	Cookie         string `json:"sdx_cookie"`
	Token          string `json:"token"`
	ExpirationDate string `json:"expiration_date"`
}

// Store persists a State as JSON at a single path. The last writer wins.
type Store struct {
	path string
}

// NewStore returns a Store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is the session file in the user's cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	return filepath.Join(dir, constants.AppName, "session.json"), nil
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a session file is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load reads the session file.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return State{}, fmt.Errorf("failed to read session file: %w", err)
	}
	var fs fileState
	if err := json.Unmarshal(data, &fs); err != nil {
		return State{}, fmt.Errorf("failed to parse session file %s: %w", s.path, err)
	}
	expires, err := time.ParseInLocation(timeLayout, fs.ExpirationDate, time.Local)
	if err != nil {
		return State{}, fmt.Errorf("invalid expiration_date %q: %w", fs.ExpirationDate, err)
	}
	return State{
		WebVersion: fs.WebVersion,
		Cookie:     fs.Cookie,
		Token:      fs.Token,
		ExpiresAt:  expires,
	}, nil
}

// Save writes state through a temporary file renamed over the target.
func (s *Store) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(fileState{
		WebVersion:     state.WebVersion,
		Cookie:         state.Cookie,
		Token:          state.Token,
		ExpirationDate: state.ExpiresAt.In(time.Local).Format(timeLayout),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Delete removes the session file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
