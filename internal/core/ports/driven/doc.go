// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): stores, vector index, embedding and
// rerank providers, LLM, cache, OCR, and the external parsing service.
//
// Optional services degrade gracefully: a nil RerankService skips the
// rerank pass, a nil LLMService skips query expansion, and a failing
// QueryCache behaves as an always-miss cache.
package driven
