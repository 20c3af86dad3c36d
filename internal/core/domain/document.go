package domain

import "time"

// DocumentStatus represents a document's position in the ingestion lifecycle.
type DocumentStatus string

// Document lifecycle statuses. A document moves forward through these
// states during ingestion and never backwards.
const (
	StatusUploading DocumentStatus = "uploading"
	StatusParsing   DocumentStatus = "parsing"
	StatusEmbedding DocumentStatus = "embedding"
	StatusCompleted DocumentStatus = "completed"
	StatusFailed    DocumentStatus = "failed"
)

// Document represents an uploaded file and its ingestion state.
// Documents are tenant-scoped; query-time code never mutates them.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// TenantID scopes the document to a tenant.
	TenantID string

	// Filename is the original filename as uploaded.
	Filename string

	// Format is the declared document format, derived from the extension.
	Format Format

	// SizeBytes is the raw file size.
	SizeBytes int64

	// Status is the current ingestion lifecycle state.
	Status DocumentStatus

	// Error holds a human-readable failure message when Status is failed.
	Error string

	// ChunkCount is the number of chunks produced by ingestion.
	ChunkCount int

	// Quality is the extraction quality report attached after parsing.
	Quality *QualityReport

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document last changed state.
	UpdatedAt time.Time
}

// Chunk represents a bounded span of a document's text, the unit of
// embedding and retrieval. Chunks are immutable once created and are
// deleted together with their parent document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// TenantID duplicates the parent's tenant for query-time filtering.
	TenantID string

	// Index is the 0-based ordinal within the document. Ordinals are
	// contiguous and follow source-text order.
	Index int

	// Content is the chunk text.
	Content string

	// ContentHash is the SHA-256 hex digest of Content, used for dedup.
	ContentHash string

	// Embedding is the vector representation, populated during ingestion.
	Embedding []float32

	// VectorID is a legacy external vector-store identifier, if any.
	VectorID string

	// Metadata contains free-form key-value pairs copied into the
	// vector store payload for filtered retrieval.
	Metadata map[string]any
}
