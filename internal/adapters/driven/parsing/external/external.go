// Package external provides an adapter for a high-quality external
// parsing pipeline reached over HTTP. The parser registry consults it
// first for the formats it handles and silently falls back to the
// native parsers when it is unavailable or produces a weak result.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.ExternalParser = (*Parser)(nil)

// DefaultTimeout bounds a single external parse call.
const DefaultTimeout = 90 * time.Second

// defaultFormats are the formats the external pipeline typically
// improves on: layout-heavy binary formats, not plain text.
var defaultFormats = []domain.Format{
	domain.FormatPDF,
	domain.FormatDocx,
	domain.FormatXLSX,
	domain.FormatPresentation,
}

// Config holds configuration for the external parser.
type Config struct {
	// BaseURL is the parsing endpoint base URL. Empty disables the
	// external pipeline entirely.
	BaseURL string

	// APIKey is the provider API key, if the endpoint requires one.
	APIKey string

	// Formats overrides the default set of supported formats.
	Formats []domain.Format

	// Timeout is the request timeout (default: 90s).
	Timeout time.Duration
}

// Parser sends documents to the external parsing pipeline.
type Parser struct {
	client  *http.Client
	baseURL string
	apiKey  string
	formats map[domain.Format]bool
}

// parseResponse is the provider response format.
type parseResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// NewParser creates a new external parser adapter.
func NewParser(cfg Config) *Parser {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = defaultFormats
	}
	set := make(map[domain.Format]bool, len(formats))
	for _, f := range formats {
		set[f] = true
	}
	return &Parser{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		formats: set,
	}
}

// Supports reports whether the external pipeline handles the format.
func (p *Parser) Supports(format domain.Format) bool {
	return p.baseURL != "" && p.formats[format]
}

// Parse uploads the document and returns the extracted text.
func (p *Parser) Parse(ctx context.Context, filename string, data []byte) (string, error) {
	if p.baseURL == "" {
		return "", fmt.Errorf("external parser not configured")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/parse", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("external parser error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed parseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("external parser error: %s", parsed.Error)
	}
	return parsed.Text, nil
}
