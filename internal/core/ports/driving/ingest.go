package driving

import (
	"context"

	"github.com/counselstack/corpus/internal/core/domain"
)

// IngestStatus tracks a document's progress through the pipeline.
type IngestStatus struct {
	// DocumentID is the document being ingested.
	DocumentID string

	// Running reports whether ingestion is in progress.
	Running bool

	// Stage is the current lifecycle stage.
	Stage domain.DocumentStatus

	// Attempt is the current retry attempt (1-based).
	Attempt int
}

// Ingestor accepts uploads and runs the ingestion pipeline.
type Ingestor interface {
	// Accept validates the filename against the supported format set
	// and creates a Document in uploading status. It fails fast with
	// domain.ErrUnsupportedFormat before any parsing I/O.
	Accept(ctx context.Context, tenantID, filename string, size int64) (*domain.Document, error)

	// Process runs the ingestion pipeline for an accepted document:
	// parse, quality gate, chunk, embed, persist, invalidate cache.
	// Unexpected failures are retried with a fixed backoff; terminal
	// failures (unsupported format, parse quality, empty chunk set)
	// mark the document failed and are not retried.
	Process(ctx context.Context, documentID, filePath, tenantID string) error

	// Delete removes a document, its chunks, and its vectors, then
	// invalidates the tenant's cached queries.
	Delete(ctx context.Context, tenantID, documentID string) error

	// List returns a tenant's documents with their ingestion state.
	List(ctx context.Context, tenantID string) ([]domain.Document, error)

	// Status returns progress for an in-flight ingestion, or nil.
	Status(documentID string) *IngestStatus
}
