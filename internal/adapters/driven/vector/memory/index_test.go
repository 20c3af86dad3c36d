package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counselstack/corpus/internal/core/domain"
)

func chunk(id, tenant, doc string, vec []float32, meta map[string]any) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: doc,
		TenantID:   tenant,
		Content:    "content of " + id,
		Embedding:  vec,
		Metadata:   meta,
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("c1", "t1", "d1", []float32{1, 0, 0}, nil),
		chunk("c2", "t1", "d1", []float32{0.9, 0.1, 0}, nil),
		chunk("c3", "t1", "d2", []float32{0, 1, 0}, nil),
	}))

	hits, err := idx.Search(ctx, "t1", []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.Equal(t, "c2", hits[1].ChunkID)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestSearchTenantIsolation(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("c1", "t1", "d1", []float32{1, 0}, nil),
		chunk("c2", "t2", "d2", []float32{1, 0}, nil),
	}))

	hits, err := idx.Search(ctx, "t1", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestSearchMetadataFilter(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("c1", "t1", "d1", []float32{1, 0}, map[string]any{"practice": "litigation"}),
		chunk("c2", "t1", "d2", []float32{1, 0}, map[string]any{"practice": "tax"}),
		chunk("c3", "t1", "d3", []float32{1, 0}, map[string]any{"practice": "corporate"}),
	}))

	hits, err := idx.Search(ctx, "t1", []float32{1, 0}, 10, domain.MetadataFilter{"practice": "tax"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].ChunkID)

	hits, err = idx.Search(ctx, "t1", []float32{1, 0}, 10, domain.MetadataFilter{"practice": []string{"tax", "corporate"}})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestDeleteByDocument(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("c1", "t1", "d1", []float32{1, 0}, nil),
		chunk("c2", "t1", "d1", []float32{0, 1}, nil),
		chunk("c3", "t1", "d2", []float32{1, 1}, nil),
	}))

	require.NoError(t, idx.DeleteByDocument(ctx, "t1", "d1"))

	count, err := idx.Count(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertRequiresEmbedding(t *testing.T) {
	idx := NewIndex()
	err := idx.Upsert(context.Background(), []domain.Chunk{chunk("c1", "t1", "d1", nil, nil)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosine(nil, nil))
}
