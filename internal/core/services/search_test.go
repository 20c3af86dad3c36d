package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/counselstack/corpus/internal/adapters/driven/cache/memory"
	storagemem "github.com/counselstack/corpus/internal/adapters/driven/storage/memory"
	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
	"github.com/counselstack/corpus/internal/tokenizer"
)

// --- Mock implementations ---

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	hits      []driven.VectorHit
	searchErr error
	searches  int
	count     int
}

func (m *mockVectorIndex) Upsert(_ context.Context, _ []domain.Chunk) error { return nil }

func (m *mockVectorIndex) Search(_ context.Context, _ string, _ []float32, k int, _ domain.MetadataFilter) ([]driven.VectorHit, error) {
	m.searches++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorIndex) DeleteByDocument(_ context.Context, _, _ string) error { return nil }
func (m *mockVectorIndex) Count(_ context.Context, _ string) (int, error)        { return m.count, nil }
func (m *mockVectorIndex) Close() error                                          { return nil }

// mockQueryEmbedder implements driven.EmbeddingService and records the
// text it was asked to embed.
type mockQueryEmbedder struct {
	gotText  string
	embedErr error
}

func (m *mockQueryEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.gotText = text
	return []float32{1, 0, 0}, nil
}

func (m *mockQueryEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *mockQueryEmbedder) Dimensions() int   { return 3 }
func (m *mockQueryEmbedder) ModelName() string { return "mock-embed" }
func (m *mockQueryEmbedder) Close() error      { return nil }

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	passage string
	err     error
}

func (m *mockLLM) HypotheticalAnswer(_ context.Context, _ string) (string, error) {
	return m.passage, m.err
}

// mockReranker implements driven.RerankService for testing.
type mockReranker struct {
	results []driven.RerankResult
	err     error
}

func (m *mockReranker) Rerank(_ context.Context, _ string, _ []driven.RerankCandidate) ([]driven.RerankResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockReranker) ModelName() string { return "mock-rerank" }

// --- Helpers ---

func seedChunks(t *testing.T, store *storagemem.ChunkStore, chunks ...domain.Chunk) {
	t.Helper()
	require.NoError(t, store.CreateBatch(context.Background(), chunks))
}

func textChunk(id, tenant, content string) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: "doc-" + id,
		TenantID:   tenant,
		Content:    content,
		Metadata:   map[string]any{"filename": id + ".txt"},
	}
}

func vectorHit(id string, similarity float64) driven.VectorHit {
	return driven.VectorHit{
		ChunkID:    id,
		DocumentID: "doc-" + id,
		Filename:   id + ".txt",
		Content:    "content of " + id,
		Similarity: similarity,
	}
}

func keywordOnlyService(store *storagemem.ChunkStore) *SearchService {
	return NewSearchService(store, nil, nil, nil, nil, nil, tokenizer.NewFallback())
}

// --- Tests ---

func TestSearchEmptyQuery(t *testing.T) {
	svc := keywordOnlyService(storagemem.NewChunkStore())

	results, err := svc.Search(context.Background(), "tenant-a", "   ", domain.DefaultSearchOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyTenant(t *testing.T) {
	svc := keywordOnlyService(storagemem.NewChunkStore())

	results, err := svc.Search(context.Background(), "tenant-a", "arbitration", domain.DefaultSearchOptions())
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestKeywordSearchNormalizesScores(t *testing.T) {
	store := storagemem.NewChunkStore()
	seedChunks(t, store,
		textChunk("c1", "tenant-a", "arbitration clause arbitration rules arbitration"),
		textChunk("c2", "tenant-a", "arbitration appears once here"),
		textChunk("c3", "tenant-a", "completely unrelated indemnity text"),
	)
	svc := keywordOnlyService(store)

	opts := domain.DefaultSearchOptions()
	opts.Mode = domain.SearchModeKeyword
	results, err := svc.Search(context.Background(), "tenant-a", "arbitration", opts)
	require.NoError(t, err)

	require.Len(t, results, 2, "non-matching chunks are excluded")
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, 1.0, results[0].Score, "top score normalizes to 1")
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.Equal(t, domain.OriginKeyword, r.Origin)
		assert.NotEmpty(t, r.Filename)
	}
}

func TestKeywordSearchTenantIsolation(t *testing.T) {
	store := storagemem.NewChunkStore()
	seedChunks(t, store,
		textChunk("c1", "tenant-a", "arbitration clause"),
		textChunk("c2", "tenant-b", "arbitration clause"),
	)
	svc := keywordOnlyService(store)

	opts := domain.DefaultSearchOptions()
	opts.Mode = domain.SearchModeKeyword
	results, err := svc.Search(context.Background(), "tenant-b", "arbitration", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ChunkID)
}

func TestKeywordSearchMetadataFilter(t *testing.T) {
	store := storagemem.NewChunkStore()
	litigation := textChunk("c1", "tenant-a", "arbitration clause for disputes")
	litigation.Metadata["practice"] = "litigation"
	tax := textChunk("c2", "tenant-a", "arbitration clause for assessments")
	tax.Metadata["practice"] = "tax"
	seedChunks(t, store, litigation, tax)
	svc := keywordOnlyService(store)

	opts := domain.DefaultSearchOptions()
	opts.Mode = domain.SearchModeKeyword
	opts.Filter = domain.MetadataFilter{"practice": "tax"}
	results, err := svc.Search(context.Background(), "tenant-a", "arbitration", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ChunkID)
}

func TestHybridFusionOrdersByRRF(t *testing.T) {
	store := storagemem.NewChunkStore()
	seedChunks(t, store,
		textChunk("b", "tenant-a", "alpha alpha alpha signal"),
		textChunk("c", "tenant-a", "alpha appears once"),
		textChunk("a", "tenant-a", "unrelated zebra text"),
	)
	vectors := &mockVectorIndex{hits: []driven.VectorHit{vectorHit("a", 0.9), vectorHit("b", 0.8)}}
	svc := NewSearchService(store, vectors, &mockQueryEmbedder{}, nil, nil, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeHybrid}
	results, err := svc.Search(context.Background(), "tenant-a", "alpha", opts)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// b appears in both lists (lexical rank 0, semantic rank 1) and
	// must outrank the single-list candidates.
	assert.Equal(t, "b", results[0].ChunkID)
	assert.InDelta(t, 1.0/60+1.0/61, results[0].Score, 1e-9)
	assert.Equal(t, "a", results[1].ChunkID)
	assert.InDelta(t, 1.0/60, results[1].Score, 1e-9)
	assert.Equal(t, "c", results[2].ChunkID)
	assert.InDelta(t, 1.0/61, results[2].Score, 1e-9)

	for _, r := range results {
		assert.Equal(t, domain.OriginHybrid, r.Origin)
	}
}

func TestHybridEmptySemanticListPassesLexicalThrough(t *testing.T) {
	store := storagemem.NewChunkStore()
	seedChunks(t, store, textChunk("c1", "tenant-a", "alpha beta gamma"))
	vectors := &mockVectorIndex{} // no hits
	svc := NewSearchService(store, vectors, &mockQueryEmbedder{}, nil, nil, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeHybrid}
	results, err := svc.Search(context.Background(), "tenant-a", "alpha", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// RRF is skipped: the lexical result keeps its normalized score.
	assert.Equal(t, domain.OriginKeyword, results[0].Origin)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestHybridEmptyLexicalListPassesSemanticThrough(t *testing.T) {
	store := storagemem.NewChunkStore()
	vectors := &mockVectorIndex{hits: []driven.VectorHit{vectorHit("a", 0.9)}}
	svc := NewSearchService(store, vectors, &mockQueryEmbedder{}, nil, nil, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeHybrid}
	results, err := svc.Search(context.Background(), "tenant-a", "anything", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.OriginSemantic, results[0].Origin)
	assert.Equal(t, 0.9, results[0].Score)
}

func TestHybridSemanticErrorSurfaces(t *testing.T) {
	store := storagemem.NewChunkStore()
	seedChunks(t, store, textChunk("c1", "tenant-a", "alpha"))
	vectors := &mockVectorIndex{searchErr: errors.New("qdrant down")}
	svc := NewSearchService(store, vectors, &mockQueryEmbedder{}, nil, nil, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeHybrid}
	_, err := svc.Search(context.Background(), "tenant-a", "alpha", opts)
	assert.Error(t, err)
}

func TestHybridDegradesWithoutVectorCapability(t *testing.T) {
	store := storagemem.NewChunkStore()
	seedChunks(t, store, textChunk("c1", "tenant-a", "alpha beta"))
	svc := keywordOnlyService(store)

	results, err := svc.Search(context.Background(), "tenant-a", "alpha", domain.SearchOptions{TopK: 5, Mode: domain.SearchModeHybrid})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.OriginKeyword, results[0].Origin)
}

func TestExpansionFeedsOnlySemanticLeg(t *testing.T) {
	embedder := &mockQueryEmbedder{}
	vectors := &mockVectorIndex{hits: []driven.VectorHit{vectorHit("a", 0.9)}}
	llm := &mockLLM{passage: "A hypothetical passage about arbitration."}
	svc := NewSearchService(storagemem.NewChunkStore(), vectors, embedder, llm, nil, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeSemantic}
	_, err := svc.Search(context.Background(), "tenant-a", "arbitration clause", opts)
	require.NoError(t, err)

	assert.Contains(t, embedder.gotText, "arbitration clause")
	assert.Contains(t, embedder.gotText, "A hypothetical passage about arbitration.")
}

func TestExpansionFailureFallsBackToRawQuery(t *testing.T) {
	embedder := &mockQueryEmbedder{}
	vectors := &mockVectorIndex{hits: []driven.VectorHit{vectorHit("a", 0.9)}}
	llm := &mockLLM{err: errors.New("model offline")}
	svc := NewSearchService(storagemem.NewChunkStore(), vectors, embedder, llm, nil, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeSemantic}
	results, err := svc.Search(context.Background(), "tenant-a", "arbitration clause", opts)
	require.NoError(t, err, "expansion failure must not fail the search")
	assert.Len(t, results, 1)
	assert.Equal(t, "arbitration clause", embedder.gotText)
}

func TestRerankReplacesScoresAndTruncates(t *testing.T) {
	vectors := &mockVectorIndex{hits: []driven.VectorHit{
		vectorHit("a", 0.9), vectorHit("b", 0.8), vectorHit("c", 0.7),
	}}
	reranker := &mockReranker{results: []driven.RerankResult{
		{ID: "c", Score: 0.95},
		{ID: "a", Score: 0.40},
		{ID: "b", Score: 0.10},
	}}
	svc := NewSearchService(storagemem.NewChunkStore(), vectors, &mockQueryEmbedder{}, nil, reranker, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 2, Mode: domain.SearchModeSemantic, Rerank: true}
	results, err := svc.Search(context.Background(), "tenant-a", "query", opts)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "c", results[0].ChunkID)
	assert.Equal(t, 0.95, results[0].Score)
	assert.True(t, results[0].Reranked)
	assert.Equal(t, "a", results[1].ChunkID)
}

func TestRerankFailureKeepsOrder(t *testing.T) {
	vectors := &mockVectorIndex{hits: []driven.VectorHit{vectorHit("a", 0.9), vectorHit("b", 0.8)}}
	reranker := &mockReranker{err: errors.New("rerank timeout")}
	svc := NewSearchService(storagemem.NewChunkStore(), vectors, &mockQueryEmbedder{}, nil, reranker, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 2, Mode: domain.SearchModeSemantic, Rerank: true}
	results, err := svc.Search(context.Background(), "tenant-a", "query", opts)
	require.NoError(t, err, "rerank failure must not fail the search")
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.False(t, results[0].Reranked)
}

func TestMinScoreFilter(t *testing.T) {
	vectors := &mockVectorIndex{hits: []driven.VectorHit{vectorHit("a", 0.9), vectorHit("b", 0.3)}}
	svc := NewSearchService(storagemem.NewChunkStore(), vectors, &mockQueryEmbedder{}, nil, nil, nil, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeSemantic, MinScore: 0.5}
	results, err := svc.Search(context.Background(), "tenant-a", "query", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestSearchUsesCacheOnSecondCall(t *testing.T) {
	vectors := &mockVectorIndex{hits: []driven.VectorHit{vectorHit("a", 0.9)}}
	cache := cachemem.NewCache()
	svc := NewSearchService(storagemem.NewChunkStore(), vectors, &mockQueryEmbedder{}, nil, nil, cache, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeSemantic, UseCache: true}

	first, err := svc.Search(context.Background(), "tenant-a", "query", opts)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, vectors.searches)

	second, err := svc.Search(context.Background(), "tenant-a", "query", opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, vectors.searches, "second call must be served from cache")
}

func TestSearchCacheDisabled(t *testing.T) {
	vectors := &mockVectorIndex{hits: []driven.VectorHit{vectorHit("a", 0.9)}}
	cache := cachemem.NewCache()
	svc := NewSearchService(storagemem.NewChunkStore(), vectors, &mockQueryEmbedder{}, nil, nil, cache, tokenizer.NewFallback())

	opts := domain.SearchOptions{TopK: 5, Mode: domain.SearchModeSemantic, UseCache: false}
	_, err := svc.Search(context.Background(), "tenant-a", "query", opts)
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), "tenant-a", "query", opts)
	require.NoError(t, err)
	assert.Equal(t, 2, vectors.searches)
}

func TestCacheKeyUniqueness(t *testing.T) {
	base := cacheKey("t1", "query", domain.SearchModeHybrid, 5, 0)

	variants := []string{
		cacheKey("t2", "query", domain.SearchModeHybrid, 5, 0),
		cacheKey("t1", "other query", domain.SearchModeHybrid, 5, 0),
		cacheKey("t1", "query", domain.SearchModeKeyword, 5, 0),
		cacheKey("t1", "query", domain.SearchModeHybrid, 10, 0),
		cacheKey("t1", "query", domain.SearchModeHybrid, 5, 0.5),
	}
	for _, v := range variants {
		assert.NotEqual(t, base, v)
	}

	assert.Equal(t, base, cacheKey("t1", "query", domain.SearchModeHybrid, 5, 0))
	assert.Contains(t, base, "retrieval:t1:")
}

func TestStats(t *testing.T) {
	store := storagemem.NewChunkStore()
	seedChunks(t, store,
		textChunk("c1", "tenant-a", "alpha"),
		textChunk("c2", "tenant-a", "beta"),
		textChunk("c3", "tenant-b", "gamma"),
	)
	vectors := &mockVectorIndex{count: 2}
	svc := NewSearchService(store, vectors, &mockQueryEmbedder{}, nil, nil, nil, tokenizer.NewFallback())

	stats, err := svc.Stats(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.VectorCount)
	assert.Equal(t, 2, stats.TotalChunks)
}

func TestStatsWithoutVectorIndex(t *testing.T) {
	store := storagemem.NewChunkStore()
	seedChunks(t, store, textChunk("c1", "tenant-a", "alpha"))
	svc := keywordOnlyService(store)

	stats, err := svc.Stats(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Zero(t, stats.VectorCount)
	assert.Equal(t, 1, stats.TotalChunks)
}
