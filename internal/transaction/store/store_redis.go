package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sigil/internal/transaction/models"
	"sigil/pkg/platform/sentinel"
)

const txKeyPrefix = "tx:token:"

// RedisStore persists transactions as JSON values. Suited to multi-instance
// deployments where the memory store's locality does not hold. Records are
// written without TTL: timeouts are evaluated lazily on access and cleanup
// is an external housekeeping concern.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, tx *models.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	ok, err := s.client.SetNX(ctx, txKeyPrefix+tx.ID, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	raw, err := s.client.Get(ctx, txKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	var tx models.Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// UpdateIf performs an optimistic compare-and-swap with WATCH: the write
// aborts if the key changes between the state check and the write.
func (s *RedisStore) UpdateIf(ctx context.Context, tx *models.Transaction, expectedState models.State) error {
	key := txKeyPrefix + tx.ID
	err := s.client.Watch(ctx, func(watched *redis.Tx) error {
		raw, err := watched.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read transaction: %w", err)
		}
		var current models.Transaction
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("unmarshal transaction: %w", err)
		}
		if current.State != expectedState {
			return sentinel.ErrStateMismatch
		}
		payload, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("marshal transaction: %w", err)
		}
		_, err = watched.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the token mid-check; surface it the same
		// way a state mismatch is surfaced.
		return sentinel.ErrStateMismatch
	}
	return err
}
