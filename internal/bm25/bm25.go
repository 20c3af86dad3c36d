// Package bm25 implements the Okapi BM25 lexical ranking function over
// an in-memory corpus. An index is built per query from a tenant's
// chunks; it is small, immutable after construction, and safe for
// concurrent reads.
package bm25

import "math"

// Default free parameters. k1 controls term-frequency saturation and b
// controls document-length normalization.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Index is a BM25 index over a tokenized corpus.
type Index struct {
	docs  [][]string
	freqs []map[string]int
	df    map[string]int
	avgdl float64
	k1    float64
	b     float64
}

// New builds an index from tokenized documents. The document order is
// preserved: Scores returns one score per input document.
func New(docs [][]string) *Index {
	idx := &Index{
		docs:  docs,
		freqs: make([]map[string]int, len(docs)),
		df:    make(map[string]int),
		k1:    DefaultK1,
		b:     DefaultB,
	}

	var totalLen int
	for i, doc := range docs {
		totalLen += len(doc)
		tf := make(map[string]int, len(doc))
		for _, term := range doc {
			tf[term]++
		}
		idx.freqs[i] = tf
		for term := range tf {
			idx.df[term]++
		}
	}
	if len(docs) > 0 {
		idx.avgdl = float64(totalLen) / float64(len(docs))
	}

	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docs)
}

// Scores computes the BM25 score of every indexed document against the
// tokenized query, in index order. Scores are unnormalized; callers
// typically divide by the batch maximum.
func (idx *Index) Scores(query []string) []float64 {
	scores := make([]float64, len(idx.docs))
	if len(idx.docs) == 0 || len(query) == 0 {
		return scores
	}

	n := float64(len(idx.docs))
	for _, term := range query {
		df, ok := idx.df[term]
		if !ok {
			continue
		}
		// IDF with the +1 inside the log to keep it non-negative.
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))

		for i, tf := range idx.freqs {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			dl := float64(len(idx.docs[i]))
			denom := f + idx.k1*(1-idx.b+idx.b*dl/idx.avgdl)
			scores[i] += idf * f * (idx.k1 + 1) / denom
		}
	}

	return scores
}
