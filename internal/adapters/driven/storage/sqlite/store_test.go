package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counselstack/corpus/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument(tenantID string) *domain.Document {
	return &domain.Document{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Filename:  "brief.pdf",
		Format:    domain.FormatPDF,
		SizeBytes: 2048,
		Status:    domain.StatusUploading,
	}
}

func TestDocumentCRUD(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("tenant-a")
	require.NoError(t, docs.Create(ctx, doc))

	got, err := docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Equal(t, domain.FormatPDF, got.Format)
	assert.Equal(t, domain.StatusUploading, got.Status)
	assert.Nil(t, got.Quality)
	assert.False(t, got.CreatedAt.IsZero())

	got.Status = domain.StatusCompleted
	got.ChunkCount = 12
	got.Quality = &domain.QualityReport{
		Format:     domain.FormatPDF,
		Characters: 9000,
		Score:      0.92,
		Level:      domain.QualityExcellent,
	}
	require.NoError(t, docs.Update(ctx, got))

	updated, err := docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, 12, updated.ChunkCount)
	require.NotNil(t, updated.Quality)
	assert.InDelta(t, 0.92, updated.Quality.Score, 1e-9)
	assert.Equal(t, domain.QualityExcellent, updated.Quality.Level)

	require.NoError(t, docs.Delete(ctx, doc.ID))
	_, err = docs.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentCreateDuplicate(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("tenant-a")
	require.NoError(t, docs.Create(ctx, doc))
	err := docs.Create(ctx, doc)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDocumentUpdateMissing(t *testing.T) {
	store := newTestStore(t)
	err := store.DocumentStore().Update(context.Background(), testDocument("tenant-a"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByTenantIsolation(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	a1 := testDocument("tenant-a")
	a2 := testDocument("tenant-a")
	b1 := testDocument("tenant-b")
	require.NoError(t, docs.Create(ctx, a1))
	require.NoError(t, docs.Create(ctx, a2))
	require.NoError(t, docs.Create(ctx, b1))

	listA, err := docs.ListByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, listA, 2)

	listB, err := docs.ListByTenant(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Len(t, listB, 1)

	listC, err := docs.ListByTenant(ctx, "tenant-c")
	require.NoError(t, err)
	assert.Empty(t, listC)
}

func testChunks(doc *domain.Document, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			TenantID:    doc.TenantID,
			Index:       i,
			Content:     "chunk content",
			ContentHash: uuid.New().String(),
			Embedding:   []float32{0.1 * float32(i), -0.5, 2.25},
			Metadata:    map[string]any{"filename": doc.Filename},
		})
	}
	return chunks
}

func TestChunkBatchRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("tenant-a")
	require.NoError(t, store.DocumentStore().Create(ctx, doc))

	chunks := store.ChunkStore()
	require.NoError(t, chunks.CreateBatch(ctx, testChunks(doc, 3)))

	got, err := chunks.ByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, chunk := range got {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, doc.ID, chunk.DocumentID)
		require.Len(t, chunk.Embedding, 3)
		assert.InDelta(t, 0.1*float64(i), float64(chunk.Embedding[0]), 1e-6)
		assert.InDelta(t, -0.5, float64(chunk.Embedding[1]), 1e-6)
		assert.InDelta(t, 2.25, float64(chunk.Embedding[2]), 1e-6)
		assert.Equal(t, "brief.pdf", chunk.Metadata["filename"])
	}

	count, err := chunks.CountByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestChunksCascadeOnDocumentDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("tenant-a")
	require.NoError(t, store.DocumentStore().Create(ctx, doc))
	require.NoError(t, store.ChunkStore().CreateBatch(ctx, testChunks(doc, 4)))

	require.NoError(t, store.DocumentStore().Delete(ctx, doc.ID))

	got, err := store.ChunkStore().ByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChunksByTenant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docA := testDocument("tenant-a")
	docB := testDocument("tenant-b")
	require.NoError(t, store.DocumentStore().Create(ctx, docA))
	require.NoError(t, store.DocumentStore().Create(ctx, docB))
	require.NoError(t, store.ChunkStore().CreateBatch(ctx, testChunks(docA, 2)))
	require.NoError(t, store.ChunkStore().CreateBatch(ctx, testChunks(docB, 5)))

	got, err := store.ChunkStore().ByTenant(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, chunk := range got {
		assert.Equal(t, "tenant-b", chunk.TenantID)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	doc := testDocument("tenant-a")
	doc.CreatedAt = time.Now().UTC()
	assert.NoError(t, reopened.DocumentStore().Create(context.Background(), doc))
}

func TestEmbeddingCodec(t *testing.T) {
	vec := []float32{0, 1.5, -3.25, 1e-6}
	decoded := decodeEmbedding(encodeEmbedding(vec))
	require.Len(t, decoded, len(vec))
	for i := range vec {
		assert.Equal(t, vec[i], decoded[i])
	}

	assert.Nil(t, encodeEmbedding(nil))
	assert.Nil(t, decodeEmbedding(nil))
	assert.Nil(t, decodeEmbedding([]byte{1, 2, 3}))
}
