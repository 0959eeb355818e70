//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sigil/internal/badge/models"
	"sigil/internal/badge/store"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "badges"))
}

func newBadge(name, owner string) *models.Badge {
	expires := time.Now().UTC().Add(365 * 24 * time.Hour).Truncate(time.Millisecond)
	return &models.Badge{
		Name:            name,
		OwnerEmail:      owner,
		Type:            models.TypeEmail,
		CreatedAt:       time.Now().UTC().Truncate(time.Millisecond),
		ExpiresAt:       &expires,
		RequestingAppID: "app-1",
	}
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	badge := newBadge("apple.com", "grace@apple.com")

	s.Require().NoError(s.store.Insert(ctx, badge))
	s.NotEmpty(badge.ID)

	found, err := s.store.FindByNameAndOwner(ctx, "apple.com", "grace@apple.com")
	s.Require().NoError(err)
	s.Equal(badge.ID, found.ID)
	s.Equal(models.TypeEmail, found.Type)
	s.Require().NotNil(found.ExpiresAt)
	s.True(badge.ExpiresAt.Equal(*found.ExpiresAt))

	_, err = s.store.FindByNameAndOwner(ctx, "apple.com", "other@apple.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByOwner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, newBadge("apple.com", "grace@apple.com")))
	s.Require().NoError(s.store.Insert(ctx, newBadge("Tech Industry", "grace@apple.com")))
	s.Require().NoError(s.store.Insert(ctx, newBadge("apple.com", "neighbor@apple.com")))

	badges, err := s.store.ListByOwner(ctx, "grace@apple.com")
	s.Require().NoError(err)
	s.Len(badges, 2)
}

// TestConcurrentInsertSameKey verifies the unique constraint admits exactly
// one badge per (name, owner) under contention.
func (s *PostgresStoreSuite) TestConcurrentInsertSameKey() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Insert(ctx, newBadge("apple.com", "grace@apple.com"))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one insert should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load())

	badges, err := s.store.ListByOwner(ctx, "grace@apple.com")
	s.Require().NoError(err)
	s.Len(badges, 1)
}
