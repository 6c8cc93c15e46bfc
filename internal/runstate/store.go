package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists run state as pretty-printed JSON so the snapshot stays
// human-readable. Writes go through a temp file and rename, so a crash
// mid-write never leaves a truncated state file behind.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (st *Store) Path() string { return st.path }

// Save writes the state atomically, creating parent directories as
// needed.
func (st *Store) Save(s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(st.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, st.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// Load reads and validates a previously saved state. A missing file is
// reported via os.ErrNotExist so callers can distinguish "fresh run" from
// a corrupt state.
func (st *Store) Load() (*State, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run state %s: %w", st.path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("reading run state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing run state %s: %w", st.path, err)
	}
	if s.Records == nil {
		s.Records = make(map[string]Stage)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run state %s: %w", st.path, err)
	}
	return &s, nil
}

// Archive renames the state file aside with a suffix instead of deleting
// it; state is destroyed only by explicit user action.
func (st *Store) Archive(suffix string) error {
	if suffix == "" {
		suffix = "archived"
	}
	target := fmt.Sprintf("%s.%s", st.path, suffix)
	if err := os.Rename(st.path, target); err != nil {
		return fmt.Errorf("archiving run state: %w", err)
	}
	return nil
}
