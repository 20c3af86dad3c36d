// Package memory provides in-process document and chunk stores for
// tests and ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.ChunkStore    = (*ChunkStore)(nil)
)

// DocumentStore keeps documents in a map.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.Document)}
}

// Create inserts a new document.
func (s *DocumentStore) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.docs[doc.ID] = *doc
	return nil
}

// Get returns a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := doc
	return &copied, nil
}

// Update persists changed document fields.
func (s *DocumentStore) Update(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	s.docs[doc.ID] = *doc
	return nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

// ListByTenant returns all documents belonging to a tenant, ordered by
// creation time.
func (s *DocumentStore) ListByTenant(_ context.Context, tenantID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range s.docs {
		if doc.TenantID == tenantID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return docs, nil
}

// ChunkStore keeps chunks in a map keyed by document.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string][]domain.Chunk // by document ID
}

// NewChunkStore creates an empty in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[string][]domain.Chunk)}
}

// CreateBatch inserts all chunks of a document.
func (s *ChunkStore) CreateBatch(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.DocumentID] = append(s.chunks[chunk.DocumentID], chunk)
	}
	return nil
}

// ByDocument returns a document's chunks ordered by ordinal index.
func (s *ChunkStore) ByDocument(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// ByTenant returns all chunks for a tenant.
func (s *ChunkStore) ByTenant(_ context.Context, tenantID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			if chunk.TenantID == tenantID {
				out = append(out, chunk)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// DeleteByDocument removes all chunks of a document.
func (s *ChunkStore) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// CountByTenant returns the number of chunks stored for a tenant.
func (s *ChunkStore) CountByTenant(_ context.Context, tenantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			if chunk.TenantID == tenantID {
				n++
			}
		}
	}
	return n, nil
}
