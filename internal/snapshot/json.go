// Package snapshot persists the alarm store's state across daemon restarts.
// Saves happen while the manager lock is held, so every backend does one
// bounded write and replaces the previous state atomically.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"alarmd/internal/alarm"
)

// JSONStore keeps the snapshot in a single JSON file, replaced via a temp
// file and rename so a crash mid-write never corrupts it.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) (*JSONStore, error) {
	if path == "" {
		return nil, errors.New("snapshot path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &JSONStore{path: path}, nil
}

func (s *JSONStore) Save(state alarm.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".alarms-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Load reads the last saved state. A missing file means a fresh start.
func (s *JSONStore) Load() (alarm.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return alarm.State{}, nil
		}
		return alarm.State{}, fmt.Errorf("reading snapshot: %w", err)
	}

	var state alarm.State
	if err := json.Unmarshal(data, &state); err != nil {
		return alarm.State{}, fmt.Errorf("decoding snapshot %s: %w", s.path, err)
	}
	return state, nil
}

func (s *JSONStore) Close() error { return nil }

var _ alarm.SnapshotStore = (*JSONStore)(nil)
