package driven

import (
	"context"

	"github.com/counselstack/corpus/internal/core/domain"
)

// ExternalParser is a high-quality external parsing pipeline (e.g. a
// cloud document-understanding service) attempted before the native
// per-format parsers for complex documents.
//
// The fallback contract is mandatory: if the external parse returns
// empty output, errors, or scores below the acceptance threshold, the
// caller silently falls back to the native parser so availability is
// independent of the external service.
type ExternalParser interface {
	// Supports reports whether the external pipeline handles format.
	Supports(format domain.Format) bool

	// Parse extracts text from the raw bytes.
	Parse(ctx context.Context, filename string, data []byte) (string, error)
}
