package driven

import (
	"context"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
)

// QueryCache stores retrieval result lists keyed by a hash of the
// query parameters. Entries are TTL-bound and invalidated per tenant
// whenever that tenant's document set changes.
//
// Implementations fail open: callers treat any error as a cache miss
// and never let a cache outage block a search.
type QueryCache interface {
	// Get returns the cached results for key and whether the key was
	// present.
	Get(ctx context.Context, key string) ([]domain.RetrievalResult, bool, error)

	// Set stores results under key with the given TTL.
	Set(ctx context.Context, key string, results []domain.RetrievalResult, ttl time.Duration) error

	// InvalidateTenant removes all cached entries for a tenant.
	InvalidateTenant(ctx context.Context, tenantID string) error
}
