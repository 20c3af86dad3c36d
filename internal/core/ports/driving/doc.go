// Package driving provides interfaces exposed by the core to its
// callers (primary/inbound ports): document ingestion and search.
package driving
