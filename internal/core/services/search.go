package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/counselstack/corpus/internal/bm25"
	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
	"github.com/counselstack/corpus/internal/core/ports/driving"
	"github.com/counselstack/corpus/internal/logger"
	"github.com/counselstack/corpus/internal/tokenizer"
)

// Ensure SearchService implements the interface.
var _ driving.Searcher = (*SearchService)(nil)

// rrfK dampens the contribution of top ranks in Reciprocal Rank
// Fusion so a single high rank cannot dominate the fused order.
const rrfK = 60

// defaultCacheTTL bounds how long a cached result list stays valid.
const defaultCacheTTL = 300 * time.Second

// SearchOption configures a SearchService.
type SearchOption func(*SearchService)

// WithCacheTTL overrides the cached-result lifetime.
func WithCacheTTL(ttl time.Duration) SearchOption {
	return func(s *SearchService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// SearchService provides tenant-scoped hybrid retrieval: semantic and
// BM25 legs fused with RRF, an optional cross-encoder rerank pass, and
// a TTL-bound query cache.
type SearchService struct {
	chunkStore  driven.ChunkStore
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
	llm         driven.LLMService
	reranker    driven.RerankService
	cache       driven.QueryCache
	segmenter   *tokenizer.Tokenizer
	cacheTTL    time.Duration
}

// NewSearchService creates a new search service. The vectorIndex,
// embedder, llm, reranker and cache are all optional (can be nil);
// missing capabilities degrade the search rather than fail it.
func NewSearchService(
	chunkStore driven.ChunkStore,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	reranker driven.RerankService,
	cache driven.QueryCache,
	segmenter *tokenizer.Tokenizer,
	opts ...SearchOption,
) *SearchService {
	s := &SearchService{
		chunkStore:  chunkStore,
		vectorIndex: vectorIndex,
		embedder:    embedder,
		llm:         llm,
		reranker:    reranker,
		cache:       cache,
		segmenter:   segmenter,
		cacheTTL:    defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns a ranked list of at most opts.TopK results.
func (s *SearchService) Search(ctx context.Context, tenantID, query string, opts domain.SearchOptions) ([]domain.RetrievalResult, error) {
	logger.Section("Search")

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.RetrievalResult{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultSearchOptions().TopK
	}
	mode := opts.Mode
	if !mode.Valid() {
		mode = domain.SearchModeHybrid
	}
	mode = s.effectiveMode(mode)

	logger.Debug("Query %q, tenant %s, mode %s, topK %d", query, tenantID, mode, topK)

	key := cacheKey(tenantID, query, mode, topK, opts.MinScore)
	if opts.UseCache && s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			logger.Debug("Cache hit for %s", key)
			return cached, nil
		} else if err != nil {
			logger.Warn("Cache get failed: %v", err)
		}
	}

	// Fetch twice topK per leg to leave room for fusion and rerank.
	fetch := 2 * topK

	var results []domain.RetrievalResult
	var err error
	switch mode {
	case domain.SearchModeKeyword:
		results, err = s.lexicalSearch(ctx, tenantID, query, fetch, opts.Filter)
	case domain.SearchModeSemantic:
		expanded := s.expandQuery(ctx, query)
		results, err = s.semanticSearch(ctx, tenantID, expanded, fetch, opts.Filter)
	case domain.SearchModeHybrid:
		results, err = s.hybridSearch(ctx, tenantID, query, fetch, opts.Filter)
	}
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Raw candidates: %d", len(results))

	if opts.MinScore > 0 {
		results = filterMinScore(results, opts.MinScore)
		logger.Debug("After min-score filter: %d", len(results))
	}

	if opts.Rerank && s.reranker != nil && len(results) > 1 {
		results = s.rerank(ctx, query, results)
	}

	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []domain.RetrievalResult{}
	}

	if opts.UseCache && s.cache != nil {
		if err := s.cache.Set(ctx, key, results, s.cacheTTL); err != nil {
			logger.Warn("Cache set failed: %v", err)
		}
	}

	logger.Info("Search returned %d results", len(results))
	return results, nil
}

// Stats summarises a tenant's indexed corpus.
func (s *SearchService) Stats(ctx context.Context, tenantID string) (*domain.TenantStats, error) {
	stats := &domain.TenantStats{}

	if s.vectorIndex != nil {
		count, err := s.vectorIndex.Count(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("vector count: %w", err)
		}
		stats.VectorCount = count
	}

	chunks, err := s.chunkStore.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("chunk count: %w", err)
	}
	stats.TotalChunks = chunks

	return stats, nil
}

// effectiveMode degrades the requested mode to what the configured
// capabilities can serve.
func (s *SearchService) effectiveMode(mode domain.SearchMode) domain.SearchMode {
	canSemantic := s.vectorIndex != nil && s.embedder != nil
	if canSemantic {
		return mode
	}
	if mode != domain.SearchModeKeyword {
		logger.Debug("Semantic search unavailable, degrading %s to keyword", mode)
	}
	return domain.SearchModeKeyword
}

// hybridSearch runs the lexical and semantic legs concurrently.
// Expansion feeds only the semantic leg; the lexical leg always uses
// the raw query so the expansion cannot pollute exact term matching.
func (s *SearchService) hybridSearch(ctx context.Context, tenantID, query string, limit int, filter domain.MetadataFilter) ([]domain.RetrievalResult, error) {
	var lexical, semantic []domain.RetrievalResult
	var lexErr, semErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		lexical, lexErr = s.lexicalSearch(ctx, tenantID, query, limit, filter)
	}()

	go func() {
		defer wg.Done()
		expanded := s.expandQuery(ctx, query)
		semantic, semErr = s.semanticSearch(ctx, tenantID, expanded, limit, filter)
	}()

	wg.Wait()

	// The semantic leg is the primary signal: its failure surfaces.
	// A lexical failure degrades to semantic-only with a warning.
	if semErr != nil {
		return nil, fmt.Errorf("semantic search: %w", semErr)
	}
	if lexErr != nil {
		logger.Warn("Lexical search failed, using semantic results only: %v", lexErr)
		return semantic, nil
	}

	// One empty list degenerates to the other's order; RRF is skipped
	// rather than computed with a zero term.
	if len(semantic) == 0 {
		return lexical, nil
	}
	if len(lexical) == 0 {
		return semantic, nil
	}

	logger.Debug("Fusing %d lexical + %d semantic results", len(lexical), len(semantic))
	return fuse(lexical, semantic), nil
}

// lexicalSearch builds a BM25 index over the tenant's chunks and
// scores the query against it. Scores are normalized to [0,1] by the
// batch maximum.
func (s *SearchService) lexicalSearch(ctx context.Context, tenantID, query string, limit int, filter domain.MetadataFilter) ([]domain.RetrievalResult, error) {
	chunks, err := s.chunkStore.ByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant chunks: %w", err)
	}

	if len(filter) > 0 {
		filtered := make([]domain.Chunk, 0, len(chunks))
		for _, c := range chunks {
			if metadataMatches(c.Metadata, filter) {
				filtered = append(filtered, c)
			}
		}
		chunks = filtered
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	docs := make([][]string, len(chunks))
	for i := range chunks {
		docs[i] = s.segmenter.Tokenize(chunks[i].Content)
	}

	index := bm25.New(docs)
	scores := index.Scores(s.segmenter.Tokenize(query))

	maxScore := 0.0
	for _, sc := range scores {
		if sc > maxScore {
			maxScore = sc
		}
	}
	if maxScore == 0 {
		return nil, nil
	}

	results := make([]domain.RetrievalResult, 0, len(chunks))
	for i, sc := range scores {
		if sc <= 0 {
			continue
		}
		results = append(results, resultFromChunk(chunks[i], sc/maxScore, domain.OriginKeyword))
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// semanticSearch embeds the query and runs a filtered nearest
// neighbour search over the tenant's vectors.
func (s *SearchService) semanticSearch(ctx context.Context, tenantID, query string, limit int, filter domain.MetadataFilter) ([]domain.RetrievalResult, error) {
	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectorIndex.Search(ctx, tenantID, vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]domain.RetrievalResult, len(hits))
	for i, hit := range hits {
		results[i] = domain.RetrievalResult{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			Filename:   hit.Filename,
			Content:    hit.Content,
			Score:      hit.Similarity,
			Origin:     domain.OriginSemantic,
			Metadata:   hit.Metadata,
		}
	}
	return results, nil
}

// expandQuery asks the generative model for a short hypothetical
// passage answering the query and appends it. Failures fall back to
// the unexpanded query; expansion never fails a search.
func (s *SearchService) expandQuery(ctx context.Context, query string) string {
	if s.llm == nil {
		return query
	}

	passage, err := s.llm.HypotheticalAnswer(ctx, query)
	if err != nil {
		logger.Warn("Query expansion failed: %v (using original query)", err)
		return query
	}
	passage = strings.TrimSpace(passage)
	if passage == "" {
		return query
	}

	logger.Debug("Expanded query with hypothetical passage (%d chars)", len(passage))
	return query + "\n\n" + passage
}

// rerank replaces scores with cross-encoder relevance. Any rerank
// failure falls back to the incoming order.
func (s *SearchService) rerank(ctx context.Context, query string, results []domain.RetrievalResult) []domain.RetrievalResult {
	candidates := make([]driven.RerankCandidate, len(results))
	byID := make(map[string]domain.RetrievalResult, len(results))
	for i, r := range results {
		candidates[i] = driven.RerankCandidate{ID: r.ChunkID, Content: r.Content}
		byID[r.ChunkID] = r
	}

	scored, err := s.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		logger.Warn("Rerank failed, keeping fused order: %v", err)
		return results
	}

	reranked := make([]domain.RetrievalResult, 0, len(scored))
	for _, sc := range scored {
		r, ok := byID[sc.ID]
		if !ok {
			continue
		}
		r.Score = sc.Score
		r.Reranked = true
		reranked = append(reranked, r)
	}
	if len(reranked) == 0 {
		return results
	}

	logger.Debug("Reranked %d candidates with %s", len(reranked), s.reranker.ModelName())
	return reranked
}

// fuse merges two ranked lists with Reciprocal Rank Fusion. Ranks are
// 0-based; a candidate present in both lists sums both contributions.
func fuse(lists ...[]domain.RetrievalResult) []domain.RetrievalResult {
	scores := make(map[string]float64)
	items := make(map[string]domain.RetrievalResult)
	var order []string

	for _, list := range lists {
		for rank, r := range list {
			if _, ok := items[r.ChunkID]; !ok {
				items[r.ChunkID] = r
				order = append(order, r.ChunkID)
			}
			scores[r.ChunkID] += 1.0 / float64(rrfK+rank)
		}
	}

	fused := make([]domain.RetrievalResult, 0, len(order))
	for _, id := range order {
		r := items[id]
		r.Score = scores[id]
		r.Origin = domain.OriginHybrid
		fused = append(fused, r)
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused
}

func filterMinScore(results []domain.RetrievalResult, minScore float64) []domain.RetrievalResult {
	kept := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	return kept
}

func resultFromChunk(c domain.Chunk, score float64, origin domain.ResultOrigin) domain.RetrievalResult {
	filename, _ := c.Metadata["filename"].(string)
	return domain.RetrievalResult{
		ChunkID:    c.ID,
		DocumentID: c.DocumentID,
		Filename:   filename,
		Content:    c.Content,
		Score:      score,
		Origin:     origin,
		Metadata:   c.Metadata,
	}
}

// metadataMatches applies a MetadataFilter to a chunk's metadata:
// string values are exact-match, []string values are set-membership.
func metadataMatches(metadata map[string]any, filter domain.MetadataFilter) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		switch w := want.(type) {
		case string:
			if s, ok := got.(string); !ok || s != w {
				return false
			}
		case []string:
			s, ok := got.(string)
			if !ok {
				return false
			}
			found := false
			for _, candidate := range w {
				if s == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// cacheKey hashes the full query tuple so any differing field yields a
// distinct key. The tenant stays in clear text for pattern
// invalidation.
func cacheKey(tenantID, query string, mode domain.SearchMode, topK int, minScore float64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d|%g", tenantID, query, mode, topK, minScore))
	return fmt.Sprintf("retrieval:%s:%s", tenantID, hex.EncodeToString(sum[:]))
}
