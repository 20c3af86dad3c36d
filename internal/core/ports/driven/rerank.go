package driven

import "context"

// RerankCandidate is a chunk sent to the reranker for scoring.
type RerankCandidate struct {
	// ID identifies the chunk so results can be mapped back.
	ID string

	// Content is the text scored against the query.
	Content string
}

// RerankResult is a reranked candidate with its cross-encoder score.
type RerankResult struct {
	// ID matches the candidate ID.
	ID string

	// Score is the cross-encoder relevance score.
	Score float64
}

// RerankService scores candidates against a query with a cross-encoder
// model. This is an optional service: on error or when nil, callers
// fall back to the pre-rerank ordering.
type RerankService interface {
	// Rerank scores candidates against the query and returns results
	// sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}
