package store

import (
	"context"
	"strings"
	"sync"

	"sigil/internal/inference/models"
	"sigil/pkg/platform/sentinel"
)

// InMemoryStore keeps the inference graph in a map keyed by domain.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]models.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]models.Entry)}
}

func (s *InMemoryStore) Add(_ context.Context, entry models.Entry) error {
	domain := strings.ToLower(entry.Domain)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries[domain] {
		if existing.InferredBadgeName == entry.InferredBadgeName {
			return sentinel.ErrConflict
		}
	}
	entry.Domain = domain
	s.entries[domain] = append(s.entries[domain], entry)
	return nil
}

func (s *InMemoryStore) FindByDomain(_ context.Context, domain string) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Entry{}, s.entries[strings.ToLower(domain)]...), nil
}
