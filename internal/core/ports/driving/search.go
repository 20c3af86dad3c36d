package driving

import (
	"context"

	"github.com/counselstack/corpus/internal/core/domain"
)

// Searcher is the query-time entry point for tenant-scoped retrieval.
type Searcher interface {
	// Search returns a ranked list of at most opts.TopK results for
	// the query. A tenant with no indexed chunks yields an empty list,
	// not an error.
	Search(ctx context.Context, tenantID, query string, opts domain.SearchOptions) ([]domain.RetrievalResult, error)

	// Stats summarises a tenant's indexed corpus.
	Stats(ctx context.Context, tenantID string) (*domain.TenantStats, error)
}
