package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/counselstack/corpus/internal/chunker"
	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
	"github.com/counselstack/corpus/internal/core/ports/driving"
	"github.com/counselstack/corpus/internal/logger"
	"github.com/counselstack/corpus/internal/parsers"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// Retry policy for unexpected ingestion failures. Terminal failures
// (unsupported format, failed parse quality, empty chunk set) are
// deterministic and never retried.
const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 60 * time.Second
)

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithRetryPolicy overrides the retry attempt count and backoff.
func WithRetryPolicy(attempts int, backoff time.Duration) IngestOption {
	return func(s *IngestService) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

// IngestService runs the document ingestion pipeline: parse, quality
// gate, chunk, embed, persist, invalidate the tenant's query cache.
type IngestService struct {
	docStore    driven.DocumentStore
	chunkStore  driven.ChunkStore
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
	cache       driven.QueryCache
	registry    *parsers.Registry
	splitter    *chunker.Chunker

	maxAttempts int
	backoff     time.Duration

	// Status tracking
	mu     sync.RWMutex
	active map[string]*driving.IngestStatus
}

// NewIngestService creates a new ingest service. The vectorIndex,
// embedder and cache are optional (can be nil): without embeddings the
// document is still parsed, chunked and stored for keyword search.
func NewIngestService(
	docStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	cache driven.QueryCache,
	registry *parsers.Registry,
	splitter *chunker.Chunker,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		docStore:    docStore,
		chunkStore:  chunkStore,
		vectorIndex: vectorIndex,
		embedder:    embedder,
		cache:       cache,
		registry:    registry,
		splitter:    splitter,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultRetryBackoff,
		active:      make(map[string]*driving.IngestStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept validates the filename extension and records the document in
// uploading status. Fails fast with domain.ErrUnsupportedFormat.
func (s *IngestService) Accept(ctx context.Context, tenantID, filename string, size int64) (*domain.Document, error) {
	format, err := domain.FormatForFilename(filename)
	if err != nil {
		return nil, fmt.Errorf("accept %q: %w", filename, err)
	}

	now := time.Now()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Filename:  filename,
		Format:    format,
		SizeBytes: size,
		Status:    domain.StatusUploading,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.docStore.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	logger.Info("Accepted %s (%s, %d bytes) for tenant %s", filename, format, size, tenantID)
	return doc, nil
}

// Process runs the ingestion pipeline for an accepted document.
// Unexpected failures are retried with a fixed backoff; terminal
// failures mark the document failed immediately.
func (s *IngestService) Process(ctx context.Context, documentID, filePath, tenantID string) error {
	status := &driving.IngestStatus{
		DocumentID: documentID,
		Running:    true,
		Stage:      domain.StatusUploading,
	}
	s.setStatus(documentID, status)
	defer s.clearStatus(documentID)

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.updateStatus(documentID, func(st *driving.IngestStatus) { st.Attempt = attempt })

		err = s.run(ctx, documentID, filePath, tenantID)
		if err == nil {
			return nil
		}

		if domain.TerminalIngestError(err) {
			logger.Warn("Ingestion of %s failed terminally: %v", documentID, err)
			break
		}

		logger.Warn("Ingestion attempt %d/%d for %s failed: %v", attempt, s.maxAttempts, documentID, err)
		if attempt < s.maxAttempts {
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				err = ctx.Err()
				attempt = s.maxAttempts
			}
		}
	}

	s.markFailed(ctx, documentID, err)
	return err
}

// run executes one ingestion attempt.
func (s *IngestService) run(ctx context.Context, documentID, filePath, tenantID string) error {
	doc, err := s.docStore.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc.TenantID != tenantID {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	if err := s.transition(ctx, doc, domain.StatusParsing); err != nil {
		return err
	}

	logger.Section("Parsing")
	text, report, err := s.registry.Parse(ctx, doc.Format, doc.Filename, data)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	doc.Quality = report
	if report.Level == domain.QualityFailed {
		return fmt.Errorf("%w: %s", domain.ErrParseQuality, strings.Join(report.Errors, "; "))
	}
	logger.Info("Parsed %s: %d chars, quality %s (%.2f)", doc.Filename, report.Characters, report.Level, report.Score)

	chunks := s.buildChunks(doc, text)
	if len(chunks) == 0 {
		return domain.ErrEmptyChunkSet
	}
	logger.Info("Chunked %s into %d chunks", doc.Filename, len(chunks))

	if err := s.transition(ctx, doc, domain.StatusEmbedding); err != nil {
		return err
	}

	if err := s.embed(ctx, chunks); err != nil {
		return err
	}

	if err := s.chunkStore.CreateBatch(ctx, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	if s.vectorIndex != nil && s.embedder != nil {
		if err := s.vectorIndex.Upsert(ctx, chunks); err != nil {
			return fmt.Errorf("index vectors: %w", err)
		}
	}

	doc.Status = domain.StatusCompleted
	doc.Error = ""
	doc.ChunkCount = len(chunks)
	doc.UpdatedAt = time.Now()
	if err := s.docStore.Update(ctx, doc); err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	s.updateStatus(documentID, func(st *driving.IngestStatus) { st.Stage = domain.StatusCompleted })

	s.invalidateCache(ctx, tenantID)
	logger.Info("Ingested %s: %d chunks", doc.Filename, len(chunks))
	return nil
}

// buildChunks splits text and assigns contiguous 0-based ordinals.
// Chunks with a content hash already seen in this document are
// dropped; ordinals stay contiguous after the drop.
func (s *IngestService) buildChunks(doc *domain.Document, text string) []domain.Chunk {
	pieces := s.splitter.Split(text)

	seen := make(map[string]bool, len(pieces))
	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		sum := sha256.Sum256([]byte(piece))
		hash := hex.EncodeToString(sum[:])
		if seen[hash] {
			continue
		}
		seen[hash] = true

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			TenantID:    doc.TenantID,
			Index:       len(chunks),
			Content:     piece,
			ContentHash: hash,
			Metadata: map[string]any{
				"filename": doc.Filename,
				"format":   string(doc.Format),
			},
		})
	}
	return chunks
}

// embed populates chunk embeddings in one batched provider call.
// Skipped when no embedding service is configured.
func (s *IngestService) embed(ctx context.Context, chunks []domain.Chunk) error {
	if s.embedder == nil {
		logger.Debug("No embedding service configured, skipping embeddings")
		return nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

// Delete removes a document with its chunks and vectors, then
// invalidates the tenant's cached queries.
func (s *IngestService) Delete(ctx context.Context, tenantID, documentID string) error {
	doc, err := s.docStore.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc.TenantID != tenantID {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	if err := s.chunkStore.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	if s.vectorIndex != nil {
		if err := s.vectorIndex.DeleteByDocument(ctx, tenantID, documentID); err != nil {
			return fmt.Errorf("delete vectors: %w", err)
		}
	}

	if err := s.docStore.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.invalidateCache(ctx, tenantID)
	logger.Info("Deleted document %s for tenant %s", documentID, tenantID)
	return nil
}

// List returns a tenant's documents with their ingestion state.
func (s *IngestService) List(ctx context.Context, tenantID string) ([]domain.Document, error) {
	docs, err := s.docStore.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Status returns progress for an in-flight ingestion, or nil.
func (s *IngestService) Status(documentID string) *driving.IngestStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.active[documentID]
	if !ok {
		return nil
	}
	copied := *st
	return &copied
}

// transition advances the document lifecycle and persists it.
func (s *IngestService) transition(ctx context.Context, doc *domain.Document, status domain.DocumentStatus) error {
	doc.Status = status
	doc.UpdatedAt = time.Now()
	if err := s.docStore.Update(ctx, doc); err != nil {
		return fmt.Errorf("transition to %s: %w", status, err)
	}
	s.updateStatus(doc.ID, func(st *driving.IngestStatus) { st.Stage = status })
	return nil
}

// markFailed records the failure on the document. Store errors here
// are logged, not returned: the pipeline error is the one that matters.
func (s *IngestService) markFailed(ctx context.Context, documentID string, cause error) {
	doc, err := s.docStore.Get(ctx, documentID)
	if err != nil {
		logger.Warn("Mark failed: get document %s: %v", documentID, err)
		return
	}

	doc.Status = domain.StatusFailed
	if cause != nil {
		doc.Error = cause.Error()
	}
	doc.UpdatedAt = time.Now()
	if err := s.docStore.Update(ctx, doc); err != nil {
		logger.Warn("Mark failed: update document %s: %v", documentID, err)
	}
	s.updateStatus(documentID, func(st *driving.IngestStatus) { st.Stage = domain.StatusFailed })
}

// invalidateCache drops the tenant's cached queries. Fail-open.
func (s *IngestService) invalidateCache(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTenant(ctx, tenantID); err != nil {
		logger.Warn("Cache invalidation for tenant %s failed: %v", tenantID, err)
	}
}

func (s *IngestService) setStatus(documentID string, status *driving.IngestStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[documentID] = status
}

func (s *IngestService) updateStatus(documentID string, fn func(*driving.IngestStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.active[documentID]; ok {
		fn(st)
	}
}

func (s *IngestService) clearStatus(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, documentID)
}
