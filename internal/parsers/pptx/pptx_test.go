package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPptx(t *testing.T, slides map[int]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for n, body := range slides {
		f, err := zw.Create(fmt.Sprintf("ppt/slides/slide%d.xml", n))
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const slideTmpl = `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody>%s</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

func slideWith(paragraphs ...string) string {
	body := ""
	for _, p := range paragraphs {
		body += "<a:p><a:r><a:t>" + p + "</a:t></a:r></a:p>"
	}
	return fmt.Sprintf(slideTmpl, body)
}

func TestParseSlidesInOrder(t *testing.T) {
	p := New()
	data := buildPptx(t, map[int]string{
		2: slideWith("Second slide content"),
		1: slideWith("Title slide", "Subtitle line"),
		3: slideWith("Third slide content"),
	})

	text, report, err := p.Parse(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Pages)
	first := bytes.Index([]byte(text), []byte("## Slide 1"))
	second := bytes.Index([]byte(text), []byte("## Slide 2"))
	third := bytes.Index([]byte(text), []byte("## Slide 3"))
	assert.True(t, first >= 0 && first < second && second < third)

	assert.Contains(t, text, "Title slide")
	assert.Contains(t, text, "Subtitle line")
	assert.Contains(t, text, "Second slide content")
}

func TestParseEmptySlidesWarned(t *testing.T) {
	p := New()
	data := buildPptx(t, map[int]string{
		1: slideWith("Only slide with text"),
		2: slideWith(),
	})

	text, report, err := p.Parse(context.Background(), data)
	require.NoError(t, err)

	assert.Contains(t, text, "Only slide with text")
	assert.NotContains(t, text, "## Slide 2")
	assert.NotEmpty(t, report.Warnings)
}

func TestParseNoSlides(t *testing.T) {
	p := New()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.Close())

	text, report, err := p.Parse(context.Background(), buf.Bytes())
	require.NoError(t, err)

	assert.Empty(t, text)
	assert.NotEmpty(t, report.Errors)
}
