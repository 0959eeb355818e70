package store

import (
	"context"
	"sync"

	"sigil/internal/transaction/models"
	"sigil/pkg/platform/sentinel"
)

// InMemoryStore keeps transactions in a map. The conditional update runs
// under the store lock, making it atomic the way the postgres and redis
// stores are.
type InMemoryStore struct {
	mu  sync.RWMutex
	txs map[string]models.Transaction
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{txs: make(map[string]models.Transaction)}
}

func (s *InMemoryStore) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txs[tx.ID]; exists {
		return sentinel.ErrConflict
	}
	s.txs[tx.ID] = *tx
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := tx
	return &copied, nil
}

// UpdateIf writes tx only when the stored record is still in expectedState.
// Returns sentinel.ErrStateMismatch when another writer got there first and
// sentinel.ErrNotFound for unknown ids.
func (s *InMemoryStore) UpdateIf(_ context.Context, tx *models.Transaction, expectedState models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.txs[tx.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.State != expectedState {
		return sentinel.ErrStateMismatch
	}
	s.txs[tx.ID] = *tx
	return nil
}
