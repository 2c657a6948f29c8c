// Package embeddingtest provides a deterministic in-process Embedder for
// tests: a hashed bag-of-words vector, so texts sharing tokens score higher
// than unrelated texts without any network dependency.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/reposcope/reposcope/internal/embedding"
)

// Fake is a deterministic Embedder. The zero value is not usable; call New.
type Fake struct {
	Dim int

	// FailDocsAfter, when > 0, makes EmbedDocuments return ErrDocs once
	// that many calls have succeeded. Used to exercise batch-failure paths.
	FailDocsAfter int
	ErrDocs       error

	docCalls int
}

func New() *Fake {
	return &Fake{Dim: 128}
}

func (f *Fake) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docCalls++
	if f.ErrDocs != nil && f.docCalls > f.FailDocsAfter {
		return nil, f.ErrDocs
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.embed(t)
	}
	return out, nil
}

func (f *Fake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return f.embed(text), nil
}

// embed buckets lowercased tokens into Dim dimensions by FNV hash and
// normalizes, so token overlap translates into cosine similarity.
func (f *Fake) embed(text string) []float32 {
	v := make([]float32, f.Dim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[int(h.Sum32())%f.Dim]++
	}
	return embedding.Normalize(v)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
