// Package state persists the single "last successful import" timestamp
// between runs.
package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ImportState is the durable record written after a fully successful run.
type ImportState struct {
	LastImportTime time.Time `json:"lastImportTime"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store reads and writes the state file. No history is kept; each run
// rewrites the single record.
type Store struct {
	path string
	log  *slog.Logger
}

// NewStore creates a store backed by the file at path.
func NewStore(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load returns the persisted state. A missing, unreadable, or corrupt file
// yields (zero, false) so the caller falls back to its default window.
func (s *Store) Load() (ImportState, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("state file unreadable, treating as never imported",
				"path", s.path, "error", err)
		}
		return ImportState{}, false
	}

	var st ImportState
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn("state file corrupt, treating as never imported",
			"path", s.path, "error", err)
		return ImportState{}, false
	}
	if st.LastImportTime.IsZero() {
		return ImportState{}, false
	}
	return st, true
}

// Save writes lastImport plus a write-time stamp, creating the parent
// directory if needed. A failed write is logged and reported as false; the
// caller continues with stale state.
func (s *Store) Save(lastImport time.Time) bool {
	st := ImportState{
		LastImportTime: lastImport.UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.log.Error("marshal import state", "error", err)
		return false
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.log.Error("create state directory", "path", dir, "error", err)
			return false
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Error("write state file", "path", s.path, "error", err)
		return false
	}
	return true
}

// Reset deletes the persisted state. An absent file counts as success.
func (s *Store) Reset() bool {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Error("remove state file", "path", s.path, "error", err)
		return false
	}
	return true
}
