// Package qdrantindex provides a vector index adapter backed by a
// Qdrant collection. All tenants share one collection; tenant
// isolation is enforced with a mandatory payload filter on every
// query and delete.
package qdrantindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
	"github.com/counselstack/corpus/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultHost       = "localhost"
	DefaultPort       = 6334
	DefaultCollection = "corpus_chunks"
)

// Payload field names.
const (
	fieldTenantID   = "tenant_id"
	fieldDocumentID = "document_id"
	fieldFilename   = "filename"
	fieldContent    = "content"
)

// Config holds connection parameters for the Qdrant index.
type Config struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection name (default: corpus_chunks).
	Collection string

	// VectorSize is the embedding dimensionality. Must match the
	// embedding service.
	VectorSize uint64

	// APIKey is the optional API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// Index stores chunk embeddings in Qdrant.
type Index struct {
	client     *qdrant.Client
	collection string
}

// NewIndex creates a Qdrant-backed vector index, creating the
// collection with cosine distance if it does not exist.
func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &Index{client: client, collection: cfg.Collection}
	if err := idx.ensureCollection(ctx, cfg.VectorSize); err != nil {
		return nil, err
	}
	return idx, nil
}

func (x *Index) ensureCollection(ctx context.Context, vectorSize uint64) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", x.collection, err)
	}
	logger.Info("qdrant: created collection %s (dim %d)", x.collection, vectorSize)
	return nil
}

// Upsert stores chunks with their embeddings. Chunk payload carries
// the fields needed to build results without a store round-trip.
func (x *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("qdrant: chunk %s has no embedding", chunk.ID)
		}
		payload := map[string]any{
			fieldTenantID:   chunk.TenantID,
			fieldDocumentID: chunk.DocumentID,
			fieldContent:    chunk.Content,
		}
		if fn, ok := chunk.Metadata["filename"].(string); ok {
			payload[fieldFilename] = fn
		}
		for k, v := range chunk.Metadata {
			if _, reserved := payload[k]; !reserved {
				payload[k] = v
			}
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	if _, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Search returns the k nearest chunks within a tenant.
func (x *Index) Search(ctx context.Context, tenantID string, query []float32, k int, filter domain.MetadataFilter) ([]driven.VectorHit, error) {
	limit := uint64(k)
	results, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		Filter:         buildFilter(tenantID, filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(results))
	for _, r := range results {
		hit := driven.VectorHit{
			ChunkID:    r.Id.GetUuid(),
			Similarity: float64(r.Score),
			Metadata:   make(map[string]any),
		}
		for key, value := range r.Payload {
			switch key {
			case fieldDocumentID:
				hit.DocumentID = value.GetStringValue()
			case fieldFilename:
				hit.Filename = value.GetStringValue()
			case fieldContent:
				hit.Content = value.GetStringValue()
			case fieldTenantID:
				// Implied by the query filter.
			default:
				hit.Metadata[key] = value.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByDocument removes all vectors belonging to a document.
func (x *Index) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(fieldTenantID, tenantID),
			qdrant.NewMatch(fieldDocumentID, documentID),
		},
	}
	if _, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	}); err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}
	return nil
}

// Count returns the number of vectors stored for a tenant.
func (x *Index) Count(ctx context.Context, tenantID string) (int, error) {
	count, err := x.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: x.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(fieldTenantID, tenantID)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int(count), nil
}

// Close closes the underlying gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}

// buildFilter combines the mandatory tenant condition with optional
// metadata constraints.
func buildFilter(tenantID string, filter domain.MetadataFilter) *qdrant.Filter {
	must := []*qdrant.Condition{qdrant.NewMatch(fieldTenantID, tenantID)}
	for key, value := range filter {
		switch v := value.(type) {
		case string:
			must = append(must, qdrant.NewMatch(key, v))
		case []string:
			must = append(must, qdrant.NewMatchKeywords(key, v...))
		}
	}
	return &qdrant.Filter{Must: must}
}
