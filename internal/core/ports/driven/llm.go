package driven

import "context"

// LLMService provides generative model calls used by retrieval.
// This is an optional service: failures must not fail the search.
type LLMService interface {
	// HypotheticalAnswer synthesizes a short passage that would
	// plausibly answer the query. The passage is concatenated with the
	// original query to form the semantic search query (HyDE-style
	// expansion). The lexical search always uses the original query.
	HypotheticalAnswer(ctx context.Context, query string) (string, error)
}
