package driven

import (
	"context"

	"github.com/counselstack/corpus/internal/core/domain"
)

// DocumentStore persists document metadata and ingestion state.
type DocumentStore interface {
	// Create inserts a new document.
	Create(ctx context.Context, doc *domain.Document) error

	// Get returns a document by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Update persists changed document fields (status, error, chunk
	// count, quality report).
	Update(ctx context.Context, doc *domain.Document) error

	// Delete removes a document. Its chunks are removed with it.
	Delete(ctx context.Context, id string) error

	// ListByTenant returns all documents belonging to a tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Document, error)
}

// ChunkStore persists chunks produced by ingestion. Chunks are
// write-once: created in a batch and never mutated afterwards.
type ChunkStore interface {
	// CreateBatch inserts all chunks of a document in one operation.
	CreateBatch(ctx context.Context, chunks []domain.Chunk) error

	// ByDocument returns a document's chunks ordered by ordinal index.
	ByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ByTenant returns all chunks for a tenant. Used to build the
	// per-query lexical index.
	ByTenant(ctx context.Context, tenantID string) ([]domain.Chunk, error)

	// DeleteByDocument removes all chunks of a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// CountByTenant returns the number of chunks stored for a tenant.
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}
