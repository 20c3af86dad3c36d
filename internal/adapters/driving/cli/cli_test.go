package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driving"
)

// --- Fake services ---

type fakeIngestor struct {
	docs       []domain.Document
	deleted    []string
	acceptErr  error
	processErr error
}

func (f *fakeIngestor) Accept(_ context.Context, tenantID, filename string, size int64) (*domain.Document, error) {
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	doc := domain.Document{
		ID:        "doc-1",
		TenantID:  tenantID,
		Filename:  filename,
		SizeBytes: size,
		Status:    domain.StatusUploading,
	}
	return &doc, nil
}

func (f *fakeIngestor) Process(_ context.Context, documentID, _, _ string) error {
	if f.processErr != nil {
		return f.processErr
	}
	f.docs = append(f.docs, domain.Document{
		ID:         documentID,
		Filename:   "brief.txt",
		Status:     domain.StatusCompleted,
		ChunkCount: 3,
		Quality:    &domain.QualityReport{Level: domain.QualityExcellent},
	})
	return nil
}

func (f *fakeIngestor) Delete(_ context.Context, _, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func (f *fakeIngestor) List(_ context.Context, _ string) ([]domain.Document, error) {
	return f.docs, nil
}

func (f *fakeIngestor) Status(_ string) *driving.IngestStatus { return nil }

type fakeSearcher struct {
	results []domain.RetrievalResult
	stats   domain.TenantStats
	gotOpts domain.SearchOptions
}

func (f *fakeSearcher) Search(_ context.Context, _, _ string, opts domain.SearchOptions) ([]domain.RetrievalResult, error) {
	f.gotOpts = opts
	return f.results, nil
}

func (f *fakeSearcher) Stats(_ context.Context, _ string) (*domain.TenantStats, error) {
	stats := f.stats
	return &stats, nil
}

// setupTestServices wires fakes and returns a cleanup restoring nil.
func setupTestServices() (*fakeIngestor, *fakeSearcher, func()) {
	i := &fakeIngestor{}
	s := &fakeSearcher{
		results: []domain.RetrievalResult{
			{ChunkID: "c1", Filename: "brief.txt", Content: "arbitration clause text", Score: 0.92, Origin: domain.OriginHybrid},
		},
	}
	SetServices(i, s)
	return i, s, func() { SetServices(nil, nil) }
}

// resetFlags restores flag-bound package variables between runs;
// cobra keeps parsed values on the shared command objects.
func resetFlags() {
	verbose = false
	ingestTenant = "default"
	documentsTenant = "default"
	statsTenant = "default"
	searchTenant = "default"
	searchTopK = 5
	searchMode = "hybrid"
	searchMinScore = 0
	searchNoRerank = false
	searchNoCache = false
	searchJSON = false
	searchFilters = nil
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// --- Tests ---

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "corpus version")
}

func TestSearchCmdRequiresQuery(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmdPrintsResults(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "arbitration")
	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "brief.txt")
	assert.Contains(t, out, "hybrid")
}

func TestSearchCmdPassesOptions(t *testing.T) {
	_, s, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "arbitration",
		"--mode", "keyword", "-n", "10", "--min-score", "0.3",
		"--no-rerank", "--no-cache", "--filter", "practice=tax")
	require.NoError(t, err)

	assert.Equal(t, domain.SearchModeKeyword, s.gotOpts.Mode)
	assert.Equal(t, 10, s.gotOpts.TopK)
	assert.Equal(t, 0.3, s.gotOpts.MinScore)
	assert.False(t, s.gotOpts.Rerank)
	assert.False(t, s.gotOpts.UseCache)
	assert.Equal(t, domain.MetadataFilter{"practice": "tax"}, s.gotOpts.Filter)
}

func TestSearchCmdRejectsInvalidMode(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "query", "--mode", "psychic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestSearchCmdJSONOutput(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "arbitration", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"chunk_id": "c1"`)
}

func TestSearchCmdWithoutServices(t *testing.T) {
	SetServices(nil, nil)

	_, err := execute(t, "search", "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestIngestCmd(t *testing.T) {
	i, _, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	path := filepath.Join(dir, "brief.txt")
	require.NoError(t, os.WriteFile(path, []byte("some contract text"), 0600))

	out, err := execute(t, "ingest", path, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested brief.txt")
	assert.Contains(t, out, "3 chunks")
	require.Len(t, i.docs, 1)
}

func TestIngestCmdMissingFile(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ingest", "/does/not/exist.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files failed")
	assert.Contains(t, out, "exist.txt")
}

func TestDocumentsListCmd(t *testing.T) {
	i, _, cleanup := setupTestServices()
	defer cleanup()
	i.docs = []domain.Document{
		{ID: "doc-1", Filename: "brief.txt", Status: domain.StatusCompleted, ChunkCount: 3},
		{ID: "doc-2", Filename: "scan.pdf", Status: domain.StatusFailed, Error: "no usable chunks produced"},
	}

	out, err := execute(t, "documents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "brief.txt")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "no usable chunks produced")
}

func TestDocumentsDeleteCmd(t *testing.T) {
	i, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "documents", "delete", "doc-9")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted doc-9")
	assert.Equal(t, []string{"doc-9"}, i.deleted)
}

func TestStatsCmd(t *testing.T) {
	_, s, cleanup := setupTestServices()
	defer cleanup()
	s.stats = domain.TenantStats{VectorCount: 42, TotalChunks: 42}

	out, err := execute(t, "stats", "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "42")
}

func TestParseFilters(t *testing.T) {
	filter, err := parseFilters([]string{"practice=tax", "practice=corporate", "year=2024"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tax", "corporate"}, filter["practice"])
	assert.Equal(t, "2024", filter["year"])

	_, err = parseFilters([]string{"missing-separator"})
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short text", snippet("short   text", 80))
	long := snippet("one two three four five six seven eight nine ten", 20)
	assert.LessOrEqual(t, len(long), 24)
	assert.Contains(t, long, "…")
}
