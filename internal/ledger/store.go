package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StorageKey names the client state file inside the home directory.
const StorageKey = "nutrition-storage"

// State is what the client keeps on disk.
type State struct {
	Snapshot
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}

// FileStore persists State as a single JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
	last *time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, StorageKey+".json")}
}

func (s *FileStore) Path() string { return s.path }

// Load returns the stored state. A missing file is an empty state.
func (s *FileStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("ledger: read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("ledger: decode state: %w", err)
	}
	s.last = st.LastSyncAt
	return st, nil
}

// Save writes snap together with the last known sync time.
func (s *FileStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(State{Snapshot: snap, LastSyncAt: s.last})
}

// MarkSynced records at as the last successful sync without touching the
// snapshot on disk.
func (s *FileStore) MarkSynced(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{}
	b, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(b, &st); err != nil {
			return fmt.Errorf("ledger: decode state: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("ledger: read state: %w", err)
	}
	at = at.UTC()
	s.last = &at
	st.LastSyncAt = s.last
	return s.write(st)
}

func (s *FileStore) LastSync() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return time.Time{}, false
	}
	return *s.last, true
}

func (s *FileStore) write(st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ledger: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, StorageKey+"-*.tmp")
	if err != nil {
		return fmt.Errorf("ledger: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("ledger: write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ledger: write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("ledger: replace state: %w", err)
	}
	return nil
}
