// Package notes is a small JSON-file note store, newest first.
package notes

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Note is one saved note.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists notes to a single JSON file. Safe for concurrent use
// within one process.
type Store struct {
	path string

	mu sync.Mutex
}

// NewStore creates a store backed by the given file. The file is
// created on first append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Append saves a new note at the front of the list.
func (s *Store) Append(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return err
	}
	note := Note{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	all = append([]Note{note}, all...)
	return s.saveLocked(all)
}

// ListRecent returns up to n newest notes.
func (s *Store) ListRecent(n int) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *Store) loadLocked() ([]Note, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read notes file: %w", err)
	}
	var all []Note
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse notes file %s: %w", s.path, err)
	}
	return all, nil
}

func (s *Store) saveLocked(all []Note) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write notes file: %w", err)
	}
	return nil
}
