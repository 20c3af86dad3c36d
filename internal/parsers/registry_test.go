package parsers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counselstack/corpus/internal/core/domain"
)

type fakeExternal struct {
	supports bool
	text     string
	err      error
	calls    int
}

func (f *fakeExternal) Supports(domain.Format) bool { return f.supports }

func (f *fakeExternal) Parse(_ context.Context, _ string, _ []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestParseUnsupportedFormat(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Parse(context.Background(), domain.Format("exe"), "tool.exe", []byte("MZ"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestParseDispatchesNative(t *testing.T) {
	r := NewRegistry()

	text, report, err := r.Parse(context.Background(), domain.FormatText, "note.txt", []byte("plain content for the native parser"))
	require.NoError(t, err)

	assert.Equal(t, "plain content for the native parser", text)
	assert.Equal(t, domain.FormatText, report.Format)
	assert.True(t, strings.HasPrefix(report.Engine, "native/"))
}

func TestParsePrefersExternal(t *testing.T) {
	long := strings.Repeat("High quality external extraction. ", 20)
	ext := &fakeExternal{supports: true, text: long}
	r := NewRegistry(WithExternal(ext))

	text, report, err := r.Parse(context.Background(), domain.FormatPDF, "brief.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, long, text)
	assert.Equal(t, "external", report.Engine)
	assert.Equal(t, 1, ext.calls)
}

func TestParseExternalErrorFallsBack(t *testing.T) {
	ext := &fakeExternal{supports: true, err: errors.New("service down")}
	r := NewRegistry(WithExternal(ext))

	text, report, err := r.Parse(context.Background(), domain.FormatText, "note.txt", []byte("native fallback content"))
	require.NoError(t, err)

	assert.Equal(t, "native fallback content", text)
	assert.Equal(t, 1, ext.calls)
	assert.True(t, strings.HasPrefix(report.Engine, "native/"))
}

func TestParseExternalEmptyFallsBack(t *testing.T) {
	ext := &fakeExternal{supports: true, text: "   \n"}
	r := NewRegistry(WithExternal(ext))

	text, report, err := r.Parse(context.Background(), domain.FormatText, "note.txt", []byte("native fallback content"))
	require.NoError(t, err)

	assert.Equal(t, "native fallback content", text)
	assert.True(t, strings.HasPrefix(report.Engine, "native/"))
}

func TestParseExternalLowQualityFallsBack(t *testing.T) {
	// Short output scores below the acceptance threshold.
	ext := &fakeExternal{supports: true, text: "x"}
	r := NewRegistry(WithExternal(ext))

	text, report, err := r.Parse(context.Background(), domain.FormatText, "note.txt", []byte("native fallback content"))
	require.NoError(t, err)

	assert.Equal(t, "native fallback content", text)
	assert.True(t, strings.HasPrefix(report.Engine, "native/"))
}

func TestParseExternalUnsupportedFormatSkipped(t *testing.T) {
	ext := &fakeExternal{supports: false, text: "never used"}
	r := NewRegistry(WithExternal(ext))

	_, _, err := r.Parse(context.Background(), domain.FormatText, "note.txt", []byte("native content here"))
	require.NoError(t, err)

	assert.Equal(t, 0, ext.calls)
}
