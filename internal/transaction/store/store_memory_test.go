package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sigil/internal/transaction/models"
	"sigil/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) seed(id string, state models.State) *models.Transaction {
	tx := &models.Transaction{
		ID:           id,
		State:        state,
		SponsorAppID: "app-1",
		StartedAt:    time.Now().UTC(),
	}
	s.Require().NoError(s.store.Create(s.ctx, tx))
	return tx
}

func (s *InMemoryStoreSuite) TestCreate() {
	s.Run("stores a new transaction", func() {
		tx := s.seed("app-1tok", models.StatePendingCredentials)

		found, err := s.store.FindByID(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(models.StatePendingCredentials, found.State)
		s.Equal("app-1", found.SponsorAppID)
	})

	s.Run("rejects a duplicate id", func() {
		tx := s.seed("app-1dup", models.StatePendingCredentials)

		err := s.store.Create(s.ctx, tx)
		s.ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *InMemoryStoreSuite) TestFindByID() {
	s.Run("unknown id", func() {
		_, err := s.store.FindByID(s.ctx, "no-such-token")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns a copy", func() {
		tx := s.seed("app-1copy", models.StatePendingCredentials)

		found, err := s.store.FindByID(s.ctx, tx.ID)
		s.Require().NoError(err)
		found.State = models.StateRefused

		again, err := s.store.FindByID(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(models.StatePendingCredentials, again.State)
	})
}

func (s *InMemoryStoreSuite) TestUpdateIf() {
	s.Run("writes when state matches", func() {
		tx := s.seed("app-1cas", models.StatePendingCredentials)

		tx.State = models.StatePendingVerification
		tx.UserEmail = "grace@apple.com"
		s.Require().NoError(s.store.UpdateIf(s.ctx, tx, models.StatePendingCredentials))

		found, err := s.store.FindByID(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(models.StatePendingVerification, found.State)
		s.Equal("grace@apple.com", found.UserEmail)
	})

	s.Run("refuses when state moved on", func() {
		tx := s.seed("app-1race", models.StatePendingVerification)

		tx.State = models.StateAwarded
		err := s.store.UpdateIf(s.ctx, tx, models.StatePendingCredentials)
		s.ErrorIs(err, sentinel.ErrStateMismatch)

		found, findErr := s.store.FindByID(s.ctx, tx.ID)
		s.Require().NoError(findErr)
		s.Equal(models.StatePendingVerification, found.State)
	})

	s.Run("unknown id", func() {
		err := s.store.UpdateIf(s.ctx, &models.Transaction{ID: "gone"}, models.StatePendingCredentials)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
