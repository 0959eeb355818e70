package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"sigil/internal/badge/models"
	"sigil/pkg/platform/sentinel"
)

// InMemoryStore keeps badges indexed by owner and by (name, owner). The
// (name, owner) index enforces the same uniqueness the postgres store gets
// from its constraint.
type InMemoryStore struct {
	mu      sync.RWMutex
	byOwner map[string][]models.Badge
	byKey   map[string]models.Badge // name + "\x00" + ownerEmail
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byOwner: make(map[string][]models.Badge),
		byKey:   make(map[string]models.Badge),
	}
}

func key(name, ownerEmail string) string {
	return name + "\x00" + ownerEmail
}

// Insert persists the badge, assigning a store-generated ID. Returns
// sentinel.ErrConflict if a badge with the same (name, owner) already exists.
func (s *InMemoryStore) Insert(_ context.Context, badge *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(badge.Name, badge.OwnerEmail)
	if _, exists := s.byKey[k]; exists {
		return sentinel.ErrConflict
	}
	badge.ID = uuid.NewString()
	s.byKey[k] = *badge
	s.byOwner[badge.OwnerEmail] = append(s.byOwner[badge.OwnerEmail], *badge)
	return nil
}

func (s *InMemoryStore) FindByNameAndOwner(_ context.Context, name, ownerEmail string) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	badge, ok := s.byKey[key(name, ownerEmail)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := badge
	return &copied, nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerEmail string) ([]models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Badge{}, s.byOwner[ownerEmail]...), nil
}
