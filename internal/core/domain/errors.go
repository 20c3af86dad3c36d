package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates the declared format or extension
	// is not in the supported set. Surfaced synchronously at upload,
	// before any parsing is attempted. Terminal: not retried.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParseQuality indicates extraction completed mechanically but
	// the quality report scored in the failed tier. The document moves
	// to failed status. Terminal: not retried.
	ErrParseQuality = errors.New("parse quality below threshold")

	// ErrEmptyChunkSet indicates chunking produced zero usable chunks
	// from an otherwise successful extraction. Terminal: not retried.
	ErrEmptyChunkSet = errors.New("no usable chunks produced")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankUnavailable indicates the rerank service is not
	// configured. Queries fall back to pre-rerank ordering.
	ErrRerankUnavailable = errors.New("rerank service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Query expansion is skipped without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured. Semantic and hybrid search are disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrCacheUnavailable indicates a cache operation failed. Callers
	// fail open: a cache outage degrades to always-miss behaviour.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrOCRUnavailable indicates no OCR service is configured.
	ErrOCRUnavailable = errors.New("OCR service unavailable")
)

// TerminalIngestError reports whether err is a non-retryable ingestion
// failure. Unsupported formats, failed parse quality, and empty chunk
// sets are deterministic and must not be retried.
func TerminalIngestError(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrParseQuality) ||
		errors.Is(err, ErrEmptyChunkSet)
}
