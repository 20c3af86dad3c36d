// Package domain contains the core business entities for document
// ingestion and retrieval: documents, chunks, quality reports, and
// search result types. It has no dependencies on infrastructure.
package domain
