package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/maltedev/price-tracker/internal/models"
)

// JSONStore keeps tracked items in one JSON file, id-keyed. Writes go
// through a temp file plus rename so a crash never corrupts the previous
// state. Legacy record shapes are migrated at load time by the model's
// unmarshaller.
type JSONStore struct {
	mu       sync.RWMutex
	items    map[string]*models.TrackedItem
	filename string
}

func NewJSONStore(filename string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &JSONStore{
		items:    make(map[string]*models.TrackedItem),
		filename: filename,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

func (s *JSONStore) List(ctx context.Context) ([]*models.TrackedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*models.TrackedItem, 0, len(s.items))
	for _, item := range s.items {
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (*models.TrackedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *JSONStore) Create(ctx context.Context, item *models.TrackedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		return fmt.Errorf("item id is required")
	}
	s.items[item.ID] = item
	return s.save()
}

func (s *JSONStore) UpdateObserved(ctx context.Context, id string, update models.ObservedUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	update.Apply(item)
	return s.save()
}

func (s *JSONStore) SetTargetPrice(ctx context.Context, id string, target float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if target <= 0 {
		return fmt.Errorf("target price must be positive")
	}
	item.TargetPrice = target
	return s.save()
}

func (s *JSONStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return s.save()
}

func (s *JSONStore) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	tmpFile := s.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filename); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.filename)
	if err != nil {
		return err
	}

	items := make(map[string]*models.TrackedItem)
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse store file: %w", err)
	}

	s.items = items
	return nil
}
