// Package services implements the core application services: the
// ingestion pipeline (Ingestor) and tenant-scoped hybrid retrieval
// (Searcher). Services depend only on the port interfaces.
package services
