package driven

import (
	"context"

	"github.com/counselstack/corpus/internal/core/domain"
)

// VectorIndex stores chunk embeddings per tenant and supports
// approximate nearest-neighbour queries filtered by tenant and by
// chunk metadata. Writes happen only during ingestion and deletion.
type VectorIndex interface {
	// Upsert stores chunks with their embeddings. Each chunk must have
	// its Embedding populated.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// Search returns the k nearest chunks to the query vector within a
	// tenant, optionally constrained by a metadata filter. Similarity
	// is cosine (1 - cosine distance), in [0, 1].
	Search(ctx context.Context, tenantID string, query []float32, k int, filter domain.MetadataFilter) ([]VectorHit, error)

	// DeleteByDocument removes all vectors belonging to a document.
	DeleteByDocument(ctx context.Context, tenantID, documentID string) error

	// Count returns the number of vectors stored for a tenant.
	Count(ctx context.Context, tenantID string) (int, error)

	// Close releases resources.
	Close() error
}

// VectorHit is a similarity search result. The payload fields are
// denormalized into the index at upsert time so query results need no
// store round-trip.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the chunk's parent document.
	DocumentID string

	// Filename is the parent document's filename.
	Filename string

	// Content is the chunk text.
	Content string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64

	// Metadata is the chunk metadata map.
	Metadata map[string]any
}
