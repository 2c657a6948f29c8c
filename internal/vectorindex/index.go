// Package vectorindex is the request-scoped similarity index for one
// analysis run. It is built once, grown by batched inserts, queried
// read-only and discarded with the run; nothing is ever persisted.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/reposcope/reposcope/internal/chunk"
	"github.com/reposcope/reposcope/internal/embedding"
)

var (
	// ErrEmptyIndex is returned when a search hits an index with no chunks.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrDimensionMismatch is returned when a vector's dimension differs
	// from the index's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Index holds chunks and their embedding vectors in parallel slices.
// Vectors are unit length, so cosine similarity is a plain dot product.
// Search never mutates the index and is safe for concurrent readers once
// building has finished.
type Index struct {
	embedder embedding.Embedder
	dim      int
	chunks   []chunk.Chunk
	vectors  [][]float32
}

// Result is one search hit with its similarity score, in [−1, 1].
type Result struct {
	Chunk chunk.Chunk
	Score float32
}

// Build embeds the seed chunks and creates the index around them. The
// caller seeds with the technology summary chunk first so the index exists
// even if later batches fail.
func Build(ctx context.Context, embedder embedding.Embedder, seed []chunk.Chunk) (*Index, error) {
	ix := &Index{embedder: embedder}
	if err := ix.Add(ctx, seed); err != nil {
		return nil, fmt.Errorf("seed index: %w", err)
	}
	return ix, nil
}

// Add embeds chunks and appends them to the index. Callers bound batch
// sizes; Add itself embeds everything it is given in one request series.
func (ix *Index) Add(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i, v := range vectors {
		if ix.dim == 0 {
			ix.dim = len(v)
		}
		if len(v) != ix.dim {
			return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(v), ix.dim)
		}
		ix.chunks = append(ix.chunks, chunks[i])
		ix.vectors = append(ix.vectors, v)
	}
	return nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Search embeds the query and returns the k most similar chunks, nearest
// first. It is a pure read: repeated and concurrent calls against a built
// index are safe.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if len(ix.chunks) == 0 {
		return nil, ErrEmptyIndex
	}

	qv, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(qv), ix.dim)
	}

	results := make([]Result, len(ix.chunks))
	for i, v := range ix.vectors {
		results[i] = Result{Chunk: ix.chunks[i], Score: dot(qv, v)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k <= 0 {
		return nil, nil
	}
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
