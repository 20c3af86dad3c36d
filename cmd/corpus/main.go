// Command corpus wires the ingestion and retrieval stack from the
// TOML config file and runs the CLI. Optional capabilities (semantic
// search, reranking, query expansion, caching, OCR) are enabled by
// their config sections; anything unconfigured degrades gracefully.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cachemem "github.com/counselstack/corpus/internal/adapters/driven/cache/memory"
	"github.com/counselstack/corpus/internal/adapters/driven/cache/rediscache"
	configfile "github.com/counselstack/corpus/internal/adapters/driven/config/file"
	ollamaembed "github.com/counselstack/corpus/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/counselstack/corpus/internal/adapters/driven/embedding/openai"
	openaillm "github.com/counselstack/corpus/internal/adapters/driven/llm/openai"
	"github.com/counselstack/corpus/internal/adapters/driven/ocr/httpocr"
	externalparse "github.com/counselstack/corpus/internal/adapters/driven/parsing/external"
	"github.com/counselstack/corpus/internal/adapters/driven/rerank/httprerank"
	"github.com/counselstack/corpus/internal/adapters/driven/storage/sqlite"
	"github.com/counselstack/corpus/internal/adapters/driven/vector/qdrantindex"
	"github.com/counselstack/corpus/internal/adapters/driving/cli"
	"github.com/counselstack/corpus/internal/chunker"
	"github.com/counselstack/corpus/internal/core/ports/driven"
	"github.com/counselstack/corpus/internal/core/services"
	"github.com/counselstack/corpus/internal/logger"
	"github.com/counselstack/corpus/internal/parsers"
	"github.com/counselstack/corpus/internal/tokenizer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configfile.NewConfigStore(os.Getenv("CORPUS_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.dir"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	embedder := buildEmbedder(cfg)
	if embedder != nil {
		defer embedder.Close()
	}

	vectorIndex := buildVectorIndex(cfg, embedder)
	if vectorIndex != nil {
		defer vectorIndex.Close()
	}

	cache := buildCache(cfg)

	ingestor := services.NewIngestService(
		store.DocumentStore(),
		store.ChunkStore(),
		vectorIndex,
		embedder,
		cache,
		buildRegistry(cfg),
		buildChunker(cfg),
	)

	var searchOpts []services.SearchOption
	if ttl := cfg.GetInt("cache.ttl_seconds"); ttl > 0 {
		searchOpts = append(searchOpts, services.WithCacheTTL(time.Duration(ttl)*time.Second))
	}
	searcher := services.NewSearchService(
		store.ChunkStore(),
		vectorIndex,
		embedder,
		buildLLM(cfg),
		buildReranker(cfg),
		cache,
		tokenizer.New(),
		searchOpts...,
	)

	cli.SetServices(ingestor, searcher)
	return cli.Execute()
}

func buildEmbedder(cfg driven.ConfigStore) driven.EmbeddingService {
	switch provider := cfg.GetString("embedding.provider"); provider {
	case "":
		return nil
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	case "openai":
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.GetString("embedding.api_key"),
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
		if err != nil {
			logger.Warn("Embedding disabled: %v", err)
			return nil
		}
		return svc
	default:
		logger.Warn("Embedding disabled: unknown provider %q", provider)
		return nil
	}
}

// buildVectorIndex connects to Qdrant when an embedder is configured.
// Semantic search needs both; without them hybrid queries degrade to
// keyword-only.
func buildVectorIndex(cfg driven.ConfigStore, embedder driven.EmbeddingService) driven.VectorIndex {
	if embedder == nil {
		return nil
	}

	index, err := qdrantindex.NewIndex(context.Background(), qdrantindex.Config{
		Host:       cfg.GetString("vector.host"),
		Port:       cfg.GetInt("vector.port"),
		Collection: cfg.GetString("vector.collection"),
		VectorSize: uint64(embedder.Dimensions()),
		APIKey:     cfg.GetString("vector.api_key"),
		UseTLS:     cfg.GetBool("vector.use_tls"),
	})
	if err != nil {
		logger.Warn("Vector index disabled: %v", err)
		return nil
	}
	return index
}

func buildCache(cfg driven.ConfigStore) driven.QueryCache {
	switch backend := cfg.GetString("cache.backend"); backend {
	case "":
		return nil
	case "memory":
		return cachemem.NewCache()
	case "redis":
		return rediscache.NewCache(rediscache.Config{
			Addr:     cfg.GetString("cache.addr"),
			Password: cfg.GetString("cache.password"),
			DB:       cfg.GetInt("cache.db"),
		})
	default:
		logger.Warn("Query cache disabled: unknown backend %q", backend)
		return nil
	}
}

func buildLLM(cfg driven.ConfigStore) driven.LLMService {
	if cfg.GetString("llm.api_key") == "" {
		return nil
	}
	svc, err := openaillm.NewLLMService(openaillm.Config{
		APIKey:  cfg.GetString("llm.api_key"),
		BaseURL: cfg.GetString("llm.base_url"),
		Model:   cfg.GetString("llm.model"),
	})
	if err != nil {
		logger.Warn("Query expansion disabled: %v", err)
		return nil
	}
	return svc
}

func buildReranker(cfg driven.ConfigStore) driven.RerankService {
	if cfg.GetString("rerank.base_url") == "" {
		return nil
	}
	svc, err := httprerank.NewRerankService(httprerank.Config{
		BaseURL: cfg.GetString("rerank.base_url"),
		APIKey:  cfg.GetString("rerank.api_key"),
		Model:   cfg.GetString("rerank.model"),
	})
	if err != nil {
		logger.Warn("Reranking disabled: %v", err)
		return nil
	}
	return svc
}

func buildRegistry(cfg driven.ConfigStore) *parsers.Registry {
	var opts []parsers.Option

	ocr := httpocr.NewOCRService(httpocr.Config{
		BaseURL:   cfg.GetString("ocr.base_url"),
		APIKey:    cfg.GetString("ocr.api_key"),
		Languages: cfg.GetString("ocr.languages"),
	})
	if ocr.Available() {
		opts = append(opts, parsers.WithOCR(ocr))
	}

	if base := cfg.GetString("external_parser.base_url"); base != "" {
		opts = append(opts, parsers.WithExternal(externalparse.NewParser(externalparse.Config{
			BaseURL: base,
			APIKey:  cfg.GetString("external_parser.api_key"),
		})))
	}

	return parsers.NewRegistry(opts...)
}

func buildChunker(cfg driven.ConfigStore) *chunker.Chunker {
	opts := []chunker.Option{chunker.WithCounter(chunker.NewCounter())}
	if size := cfg.GetInt("chunking.size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if _, ok := cfg.Get("chunking.overlap"); ok {
		opts = append(opts, chunker.WithOverlap(cfg.GetInt("chunking.overlap")))
	}
	return chunker.New(opts...)
}
