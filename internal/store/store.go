// Package store remembers the selected difficulty between runs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jaminalder/tictactoe/internal/policy"
)

// DifficultyStore loads and saves the last selected difficulty.
type DifficultyStore interface {
	Load() (policy.Difficulty, error)
	Save(policy.Difficulty) error
}

type document struct {
	Difficulty policy.Difficulty `json:"difficulty"`
}

// FileStore keeps the difficulty in a small JSON file.
type FileStore struct {
	mu       sync.Mutex
	path     string
	fallback policy.Difficulty
}

// NewFileStore returns a store at path. Load returns fallback until
// something has been saved.
func NewFileStore(path string, fallback policy.Difficulty) *FileStore {
	return &FileStore{path: path, fallback: fallback}
}

func (s *FileStore) Load() (policy.Difficulty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.fallback, nil
	}
	if err != nil {
		return s.fallback, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return s.fallback, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc.Difficulty, nil
}

// Save replaces the file atomically.
func (s *FileStore) Save(d policy.Difficulty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(document{Difficulty: d})
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".difficulty-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// MemoryStore is an in-process store.
type MemoryStore struct {
	mu sync.Mutex
	d  policy.Difficulty
}

func NewMemoryStore(d policy.Difficulty) *MemoryStore { return &MemoryStore{d: d} }

func (s *MemoryStore) Load() (policy.Difficulty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d, nil
}

func (s *MemoryStore) Save(d policy.Difficulty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d = d
	return nil
}
