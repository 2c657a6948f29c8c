package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/chunk"
	"github.com/reposcope/reposcope/internal/embedding/embeddingtest"
)

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProcessRepository_SeedsTechnologyChunk(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "requirements.txt", "flask==2.3.0\n")
	writeRepoFile(t, root, "app.py", "import flask\n\napp = flask.Flask(__name__)\n")

	p := NewProcessor(embeddingtest.New(), nil)
	index, inventory, err := p.ProcessRepository(context.Background(), root)
	require.NoError(t, err)

	assert.Contains(t, inventory.Frameworks, "Flask")
	assert.Greater(t, index.Len(), 1)

	hits, err := index.Search(context.Background(), "Repository Technologies", 1)
	require.NoError(t, err)
	assert.Equal(t, "technology_analysis", hits[0].Chunk.Source)
	assert.Equal(t, chunk.KindMetadata, hits[0].Chunk.Kind)
	assert.True(t, strings.HasPrefix(hits[0].Chunk.Content, "Repository Technologies:\n"))
}

func TestProcessRepository_EmptyTreeErrors(t *testing.T) {
	p := NewProcessor(embeddingtest.New(), nil)

	_, _, err := p.ProcessRepository(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoProcessableFiles)
}

func TestProcessRepository_BatchFailureFallsBackToMetadataOnly(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.py", "print('hello')\n")

	fake := embeddingtest.New()
	fake.FailDocsAfter = 1 // seed batch succeeds, content batches fail
	fake.ErrDocs = errors.New("provider unavailable")

	p := NewProcessor(fake, nil)
	index, _, err := p.ProcessRepository(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, index.Len(), "only the technology summary chunk survives")
}

func TestProcessBriefing_TagsChunks(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app.py", "import flask\n")

	p := NewProcessor(embeddingtest.New(), nil)
	index, _, err := p.ProcessRepository(context.Background(), root)
	require.NoError(t, err)

	require.NoError(t, p.ProcessBriefing(context.Background(), index,
		"Construir una API REST con autenticación de usuarios."))

	formatted, err := p.FormattedContext(context.Background(), index,
		"autenticación de usuarios API REST", 3)
	require.NoError(t, err)
	assert.Contains(t, formatted, "--- FROM BRIEFING ---")
}

func TestFormattedContext_ArchitectureQueryRanksRelevantCodeFirst(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app.py",
		"# Arquitectura del servicio: API REST\n# Tecnologías: Flask\nimport flask\n")
	writeRepoFile(t, root, "notes.txt",
		"notas de jardinería sobre tulipanes y rosas\n")

	p := NewProcessor(embeddingtest.New(), nil)
	index, _, err := p.ProcessRepository(context.Background(), root)
	require.NoError(t, err)

	formatted, err := p.FormattedContext(context.Background(), index,
		"¿Qué arquitectura y tecnologías se utilizan?", 2)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(formatted, "--- FROM CODE FILE: app.py ---"),
		"most relevant chunk must lead the context, got:\n%s", formatted)
}

func TestFormattedContext_LabelsCodeBySource(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app.py", "import flask\napp = flask.Flask(__name__)\n")

	p := NewProcessor(embeddingtest.New(), nil)
	index, _, err := p.ProcessRepository(context.Background(), root)
	require.NoError(t, err)

	formatted, err := p.FormattedContext(context.Background(), index, "import flask", 2)
	require.NoError(t, err)
	assert.Contains(t, formatted, "--- FROM CODE FILE: app.py ---")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", maxContentBytes+100)

	got := truncate(long)
	assert.Len(t, got, maxContentBytes+len(truncationMark))
	assert.True(t, strings.HasSuffix(got, truncationMark))

	assert.Equal(t, "short", truncate("short"))
}
