package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counselstack/corpus/internal/core/domain"
)

func results(ids ...string) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.RetrievalResult{ChunkID: id})
	}
	return out
}

func TestSetGetRoundTrip(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "retrieval:t1:k", results("a", "b"), time.Minute))

	got, ok, err := cache.Get(ctx, "retrieval:t1:k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestGetMiss(t *testing.T) {
	cache := NewCache()

	_, ok, err := cache.Get(context.Background(), "retrieval:t1:missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	now := time.Now()
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Set(ctx, "retrieval:t1:k", results("a"), time.Minute))

	now = now.Add(2 * time.Minute)
	_, ok, err := cache.Get(ctx, "retrieval:t1:k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateTenant(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "retrieval:t1:a", results("a"), time.Minute))
	require.NoError(t, cache.Set(ctx, "retrieval:t1:b", results("b"), time.Minute))
	require.NoError(t, cache.Set(ctx, "retrieval:t2:c", results("c"), time.Minute))

	require.NoError(t, cache.InvalidateTenant(ctx, "t1"))

	_, ok, _ := cache.Get(ctx, "retrieval:t1:a")
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, "retrieval:t2:c")
	assert.True(t, ok)
}
