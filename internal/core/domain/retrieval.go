package domain

// SearchMode selects which retrieval signals a query uses.
type SearchMode string

// Search modes. Hybrid fuses semantic and keyword results with
// Reciprocal Rank Fusion and is the default.
const (
	SearchModeSemantic SearchMode = "semantic"
	SearchModeKeyword  SearchMode = "keyword"
	SearchModeHybrid   SearchMode = "hybrid"
)

// Valid reports whether m is a recognised search mode.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchModeSemantic, SearchModeKeyword, SearchModeHybrid:
		return true
	}
	return false
}

// ResultOrigin tags which retrieval signal produced a result.
type ResultOrigin string

// Result origins.
const (
	OriginSemantic ResultOrigin = "semantic"
	OriginKeyword  ResultOrigin = "keyword"
	OriginHybrid   ResultOrigin = "hybrid"
)

// MetadataFilter constrains retrieval to chunks whose metadata matches.
// A string value is an exact-match constraint; a []string value is a
// set-membership constraint.
type MetadataFilter map[string]any

// SearchOptions configures a retrieval call.
type SearchOptions struct {
	// TopK is the maximum number of results to return.
	TopK int

	// Mode selects semantic, keyword, or hybrid retrieval.
	Mode SearchMode

	// MinScore drops candidates scoring below it. Zero disables the filter.
	MinScore float64

	// Rerank enables the cross-encoder second pass.
	Rerank bool

	// UseCache enables the query cache for this call.
	UseCache bool

	// Filter restricts candidates by chunk metadata.
	Filter MetadataFilter
}

// DefaultSearchOptions returns the option defaults: hybrid mode,
// top 5, reranking and caching enabled, no score floor.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:     5,
		Mode:     SearchModeHybrid,
		Rerank:   true,
		UseCache: true,
	}
}

// RetrievalResult is a ranked chunk returned from a query. It is
// ephemeral: computed per query and cached, never persisted.
type RetrievalResult struct {
	// ChunkID identifies the source chunk.
	ChunkID string `json:"chunk_id"`

	// DocumentID identifies the chunk's parent document.
	DocumentID string `json:"document_id"`

	// Filename is the parent document's filename, denormalized for display.
	Filename string `json:"filename"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Score is the relevance score. Semantic scores are cosine
	// similarity in [0,1], keyword scores are BM25 normalized by the
	// batch maximum, and hybrid scores are RRF sums (not bounded to [0,1]).
	Score float64 `json:"score"`

	// Origin tags which signal produced this result.
	Origin ResultOrigin `json:"origin"`

	// Reranked is set when the score came from the reranker.
	Reranked bool `json:"reranked,omitempty"`

	// Metadata carries the chunk metadata map.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TenantStats summarises a tenant's indexed corpus.
type TenantStats struct {
	// VectorCount is the number of vectors in the tenant's index.
	VectorCount int `json:"vector_count"`

	// TotalChunks is the number of chunks in the metadata store.
	TotalChunks int `json:"total_chunks"`
}
