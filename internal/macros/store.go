// Package macros persists named G-code snippets for the editor as a simple
// JSON-backed list.
package macros

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gcode-analyzer/backend/internal/models"
)

// Store is a JSON-file-backed macro collection. Every mutation rewrites the
// file; macro counts are small, so this is fine.
type Store struct {
	mu    sync.RWMutex
	path  string
	items map[string]models.Macro
}

// NewStore loads macros from path, starting empty when the file does not
// exist yet.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:  path,
		items: make(map[string]models.Macro),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading macros file: %w", err)
	}

	var list []models.Macro
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing macros file: %w", err)
	}
	for _, m := range list {
		s.items[m.Name] = m
	}
	return s, nil
}

// List returns all macros sorted by name.
func (s *Store) List() []models.Macro {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Macro, 0, len(s.items))
	for _, m := range s.items {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Get returns a macro by name.
func (s *Store) Get(name string) (models.Macro, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.items[name]
	return m, ok
}

// Save creates or replaces a macro and persists the collection.
func (s *Store) Save(name, text string) (models.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := models.Macro{Name: name, Text: text, UpdatedAt: time.Now()}
	s.items[name] = m

	if err := s.flushLocked(); err != nil {
		delete(s.items, name)
		return models.Macro{}, err
	}
	return m, nil
}

// Delete removes a macro by name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.items[name]
	if !ok {
		return fmt.Errorf("macro not found: %s", name)
	}
	delete(s.items, name)

	if err := s.flushLocked(); err != nil {
		s.items[name] = old
		return err
	}
	return nil
}

func (s *Store) flushLocked() error {
	list := make([]models.Macro, 0, len(s.items))
	for _, m := range s.items {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling macros: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating macros directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing macros file: %w", err)
	}
	return nil
}
