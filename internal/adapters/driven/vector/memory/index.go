// Package memory provides an in-memory vector index. Used in tests
// and single-node development where running Qdrant is not worth it;
// search is a linear cosine scan.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	chunk  domain.Chunk
	vector []float32
}

// Index stores vectors in process memory.
type Index struct {
	mu      sync.RWMutex
	entries map[string]entry // keyed by chunk ID
}

// NewIndex creates an empty in-memory vector index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Upsert stores chunks with their embeddings.
func (x *Index) Upsert(_ context.Context, chunks []domain.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return domain.ErrInvalidInput
		}
		vec := make([]float32, len(chunk.Embedding))
		copy(vec, chunk.Embedding)
		x.entries[chunk.ID] = entry{chunk: chunk, vector: vec}
	}
	return nil
}

// Search returns the k nearest chunks within a tenant by cosine
// similarity.
func (x *Index) Search(_ context.Context, tenantID string, query []float32, k int, filter domain.MetadataFilter) ([]driven.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []driven.VectorHit
	for _, e := range x.entries {
		if e.chunk.TenantID != tenantID {
			continue
		}
		if !matchesFilter(e.chunk.Metadata, filter) {
			continue
		}
		filename, _ := e.chunk.Metadata["filename"].(string)
		hits = append(hits, driven.VectorHit{
			ChunkID:    e.chunk.ID,
			DocumentID: e.chunk.DocumentID,
			Filename:   filename,
			Content:    e.chunk.Content,
			Similarity: cosine(query, e.vector),
			Metadata:   e.chunk.Metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByDocument removes all vectors belonging to a document.
func (x *Index) DeleteByDocument(_ context.Context, tenantID, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, e := range x.entries {
		if e.chunk.TenantID == tenantID && e.chunk.DocumentID == documentID {
			delete(x.entries, id)
		}
	}
	return nil
}

// Count returns the number of vectors stored for a tenant.
func (x *Index) Count(_ context.Context, tenantID string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, e := range x.entries {
		if e.chunk.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

func matchesFilter(metadata map[string]any, filter domain.MetadataFilter) bool {
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

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
