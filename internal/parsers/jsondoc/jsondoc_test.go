package jsondoc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlattensStructure(t *testing.T) {
	p := New()
	doc := `{"case":{"title":"Smith v. Jones","year":2021,"open":true},"parties":["Smith","Jones"]}`

	text, report, err := p.Parse(context.Background(), []byte(doc))
	require.NoError(t, err)

	assert.Contains(t, text, "case.title: Smith v. Jones")
	assert.Contains(t, text, "case.year: 2021")
	assert.Contains(t, text, "case.open: true")
	assert.Contains(t, text, "parties[0]: Smith")
	assert.Contains(t, text, "parties[1]: Jones")
	assert.Empty(t, report.Errors)
}

func TestParseDeterministicKeyOrder(t *testing.T) {
	p := New()
	doc := `{"b":1,"a":2,"c":3}`

	first, _, err := p.Parse(context.Background(), []byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "a: 2\nb: 1\nc: 3", first)
}

func TestParseInvalidJSON(t *testing.T) {
	p := New()

	text, report, err := p.Parse(context.Background(), []byte(`{"broken":`))
	require.NoError(t, err)

	assert.Empty(t, text)
	assert.NotEmpty(t, report.Errors)
}

func TestParseScalarRoot(t *testing.T) {
	p := New()

	text, _, err := p.Parse(context.Background(), []byte(`"just a string"`))
	require.NoError(t, err)

	assert.Equal(t, "just a string", text)
}

func TestParseNullOnly(t *testing.T) {
	p := New()

	text, report, err := p.Parse(context.Background(), []byte(`{"a":null}`))
	require.NoError(t, err)

	assert.Empty(t, text)
	assert.NotEmpty(t, report.Errors)
}
