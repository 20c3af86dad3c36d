// Package httpocr provides an OCR service adapter for an HTTP OCR
// provider. The provider accepts raw document or image bytes and
// returns recognized text with a confidence estimate; PDF
// rasterization happens on the provider side.
package httpocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
)

// Ensure OCRService implements the interface.
var _ driven.OCRService = (*OCRService)(nil)

// DefaultTimeout covers multi-page scans, which recognize slowly.
const DefaultTimeout = 120 * time.Second

// Config holds configuration for the OCR service.
type Config struct {
	// BaseURL is the OCR endpoint base URL. Empty means OCR is not
	// configured and Available reports false.
	BaseURL string

	// APIKey is the provider API key, if the endpoint requires one.
	APIKey string

	// Languages hints the recognition languages, e.g. "en,de".
	Languages string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// OCRService recognizes text through an HTTP OCR provider.
type OCRService struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	languages string
}

// ocrResponse is the provider response format.
type ocrResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// NewOCRService creates a new HTTP OCR service.
func NewOCRService(cfg Config) *OCRService {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OCRService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		languages: cfg.Languages,
	}
}

// Available reports whether an OCR endpoint is configured.
func (s *OCRService) Available() bool {
	return s.baseURL != ""
}

// Recognize sends raw bytes to the provider and returns the
// recognized text with its confidence.
func (s *OCRService) Recognize(ctx context.Context, data []byte, mimeHint string) (*driven.OCRResult, error) {
	if !s.Available() {
		return nil, domain.ErrOCRUnavailable
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/recognize",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mimeHint)
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if s.languages != "" {
		req.Header.Set("X-OCR-Languages", s.languages)
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
		return nil, fmt.Errorf("ocr error (status %d): %s", resp.StatusCode, string(body))
	}

	var ocrResp ocrResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if ocrResp.Error != "" {
		return nil, fmt.Errorf("ocr error: %s", ocrResp.Error)
	}

	return &driven.OCRResult{
		Text:       ocrResp.Text,
		Confidence: ocrResp.Confidence,
	}, nil
}
