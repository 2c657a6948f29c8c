package vectorindex

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/chunk"
	"github.com/reposcope/reposcope/internal/embedding/embeddingtest"
)

func buildIndex(t *testing.T, chunks ...chunk.Chunk) *Index {
	t.Helper()
	ix, err := Build(context.Background(), embeddingtest.New(), chunks)
	require.NoError(t, err)
	return ix
}

func TestSearch_RanksByTokenOverlap(t *testing.T) {
	ix := buildIndex(t,
		chunk.New("import flask\napp = flask.Flask(__name__)", "app.py", chunk.KindCode),
		chunk.New("binary tree rotation helpers", "tree.py", chunk.KindCode),
		chunk.New("CSS color palette definitions", "style.css", chunk.KindCode),
	)

	results, err := ix.Search(context.Background(), "flask application", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "app.py", results[0].Chunk.Source)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	ix := buildIndex(t, chunk.New("only one chunk", "a.md", chunk.KindCode))

	results, err := ix.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_NonPositiveK(t *testing.T) {
	ix := buildIndex(t, chunk.New("only one chunk", "a.md", chunk.KindCode))

	for _, k := range []int{0, -1} {
		results, err := ix.Search(context.Background(), "anything", k)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	ix := &Index{embedder: embeddingtest.New()}
	_, err := ix.Search(context.Background(), "query", 5)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestAdd_GrowsIndex(t *testing.T) {
	ix := buildIndex(t, chunk.New("seed chunk", "meta", chunk.KindMetadata))
	require.Equal(t, 1, ix.Len())

	err := ix.Add(context.Background(), []chunk.Chunk{
		chunk.New("second chunk", "b.py", chunk.KindCode),
		chunk.New("third chunk", "c.py", chunk.KindCode),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
}

func TestAdd_EmptySliceIsNoop(t *testing.T) {
	ix := buildIndex(t, chunk.New("seed", "meta", chunk.KindMetadata))
	require.NoError(t, ix.Add(context.Background(), nil))
	assert.Equal(t, 1, ix.Len())
}

func TestSearch_ConcurrentReads(t *testing.T) {
	ix := buildIndex(t,
		chunk.New("flask web handler", "app.py", chunk.KindCode),
		chunk.New("database migration script", "migrate.py", chunk.KindCode),
		chunk.New("requirements for the briefing", "briefing", chunk.KindBriefing),
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := ix.Search(context.Background(), "flask handler", 2)
			assert.NoError(t, err)
			assert.Len(t, results, 2)
			assert.Equal(t, "app.py", results[0].Chunk.Source)
		}()
	}
	wg.Wait()

	// Search must not have mutated the index.
	assert.Equal(t, 3, ix.Len())
}
