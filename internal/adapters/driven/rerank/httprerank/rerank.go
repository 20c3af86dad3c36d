// Package httprerank provides a rerank service adapter for
// cross-encoder HTTP APIs using the Cohere/Jina request shape.
package httprerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/counselstack/corpus/internal/core/ports/driven"
)

// Ensure RerankService implements the interface.
var _ driven.RerankService = (*RerankService)(nil)

// Default configuration values.
const (
	DefaultModel   = "rerank-v3.5"
	DefaultTimeout = 15 * time.Second
)

// Config holds configuration for the rerank service.
type Config struct {
	// BaseURL is the rerank endpoint base URL (required), e.g.
	// https://api.cohere.com/v2 or https://api.jina.ai/v1.
	BaseURL string

	// APIKey is the provider API key.
	APIKey string

	// Model is the rerank model to use (default: rerank-v3.5).
	Model string

	// Timeout is the request timeout (default: 15s). Reranking sits on
	// the search path, so this stays short.
	Timeout time.Duration
}

// RerankService scores candidates with a hosted cross-encoder.
type RerankService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// rerankRequest is the provider request format.
type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// rerankResponse is the provider response format.
type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message,omitempty"`
}

// NewRerankService creates a new HTTP rerank service.
func NewRerankService(cfg Config) (*RerankService, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rerank: base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &RerankService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Rerank scores candidates against the query and returns results
// sorted by score descending, as the provider returns them.
func (s *RerankService) Rerank(ctx context.Context, query string, candidates []driven.RerankCandidate) ([]driven.RerankResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Content
	}

	reqBody := rerankRequest{
		Model:     s.model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]driven.RerankResult, 0, len(rerankResp.Results))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		results = append(results, driven.RerankResult{
			ID:    candidates[r.Index].ID,
			Score: r.RelevanceScore,
		})
	}
	return results, nil
}

// ModelName returns the model identifier for logging.
func (s *RerankService) ModelName() string {
	return s.model
}
