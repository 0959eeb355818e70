package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sigil/internal/inference/models"
	"sigil/internal/inference/store"
)

func seed(t *testing.T, s *store.InMemoryStore, entries ...models.Entry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, s.Add(context.Background(), e))
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown domain resolves empty", func(t *testing.T) {
		r := New(store.NewInMemoryStore())
		names, err := r.Resolve(ctx, "nobody.example.com")
		require.NoError(t, err)
		require.Empty(t, names)
	})

	t.Run("domain with many categories returns all", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seed(t, s,
			models.Entry{Domain: "apple.com", InferredBadgeName: "Tech Industry", SchemaVersion: 1},
			models.Entry{Domain: "apple.com", InferredBadgeName: "Fortune 500", SchemaVersion: 1},
		)
		names, err := New(s).Resolve(ctx, "apple.com")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"Tech Industry", "Fortune 500"}, names)
	})

	t.Run("lookup is case-insensitive on domain", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seed(t, s, models.Entry{Domain: "Apple.COM", InferredBadgeName: "Tech Industry", SchemaVersion: 1})
		names, err := New(s).Resolve(ctx, "apple.com")
		require.NoError(t, err)
		require.Equal(t, []string{"Tech Industry"}, names)
	})

	t.Run("unsupported schema version poisons the whole resolve", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seed(t, s,
			models.Entry{Domain: "apple.com", InferredBadgeName: "Tech Industry", SchemaVersion: 1},
			models.Entry{Domain: "apple.com", InferredBadgeName: "Future Thing", SchemaVersion: 2},
		)
		_, err := New(s).Resolve(ctx, "apple.com")
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrSchemaIndeterminate))
	})
}

func TestIsSupported(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	seed(t, s, models.Entry{Domain: "apple.com", InferredBadgeName: "Tech Industry", SchemaVersion: 1})
	r := New(s)

	supported, err := r.IsSupported(ctx, "apple.com")
	require.NoError(t, err)
	require.True(t, supported)

	supported, err = r.IsSupported(ctx, "unknown.example.com")
	require.NoError(t, err)
	require.False(t, supported)
}
