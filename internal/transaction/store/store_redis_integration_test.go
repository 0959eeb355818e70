//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sigil/internal/transaction/models"
	"sigil/internal/transaction/store"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) seed(id string, state models.State) *models.Transaction {
	tx := &models.Transaction{
		ID:           id,
		State:        state,
		SponsorAppID: "app-1",
		StartedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	s.Require().NoError(s.store.Create(context.Background(), tx))
	return tx
}

func (s *RedisStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	tx := s.seed("app-1tok", models.StatePendingCredentials)

	found, err := s.store.FindByID(ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(tx.State, found.State)
	s.Equal(tx.SponsorAppID, found.SponsorAppID)
	s.True(tx.StartedAt.Equal(found.StartedAt))

	s.ErrorIs(s.store.Create(ctx, tx), sentinel.ErrConflict)

	_, err = s.store.FindByID(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestUpdateIf() {
	ctx := context.Background()
	tx := s.seed("app-1cas", models.StatePendingCredentials)

	tx.State = models.StatePendingVerification
	tx.UserEmail = "grace@apple.com"
	tx.VerificationCode = "c0de"
	s.Require().NoError(s.store.UpdateIf(ctx, tx, models.StatePendingCredentials))

	found, err := s.store.FindByID(ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(models.StatePendingVerification, found.State)
	s.Equal("c0de", found.VerificationCode)

	// The prior state is gone, so the same conditional write fails.
	s.ErrorIs(s.store.UpdateIf(ctx, tx, models.StatePendingCredentials), sentinel.ErrStateMismatch)

	s.ErrorIs(s.store.UpdateIf(ctx, &models.Transaction{ID: "missing"}, models.StatePendingCredentials), sentinel.ErrNotFound)
}

// TestConcurrentUpdateIf verifies that racing conditional writes on one token
// produce exactly one winner.
func (s *RedisStoreSuite) TestConcurrentUpdateIf() {
	ctx := context.Background()
	tx := s.seed("app-1race", models.StatePendingVerification)

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, mismatchCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updated := *tx
			updated.State = models.StateAwarded
			err := s.store.UpdateIf(ctx, &updated, models.StatePendingVerification)
			switch {
			case err == nil:
				successCount.Add(1)
			default:
				mismatchCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one writer should win")
	s.Equal(int32(goroutines-1), mismatchCount.Load())

	found, err := s.store.FindByID(ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(models.StateAwarded, found.State)
}
