package store

import (
	"context"
	"sync"

	"sigil/internal/application/models"
	"sigil/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in a map. Suitable for tests and
// single-node development runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[string]models.Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{apps: make(map[string]models.Application)}
}

func (s *InMemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = *app
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := app
	return &copied, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	app.Status = status
	s.apps[id] = app
	return nil
}
