package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/embedding/embeddingtest"
	"github.com/reposcope/reposcope/internal/llm"
	"github.com/reposcope/reposcope/internal/techdetect"
)

type fakeInvoker struct {
	response string
	err      error
	messages []llm.Message
}

func (f *fakeInvoker) Invoke(_ context.Context, messages []llm.Message) (string, error) {
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const fullNarrative = "# 1. Análisis Técnico Multinivel\nContenido\n" +
	"## 2. Niveles de Objetivos Alcanzados\nContenido\n" +
	"### 3. Uso de IA y Señales de Alerta Pedagógica\nContenido\n" +
	"#### 4. Mejoras Priorizadas para Madurez Técnica\nContenido\n" +
	"##### 5. Elementos para Revisión Docente\nContenido"

func newTestAnalyzer(invoker Invoker) *Analyzer {
	return New(NewProcessor(embeddingtest.New(), nil), invoker, nil)
}

func writeBriefing(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "briefing.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestAnalyze_EndToEnd(t *testing.T) {
	repo := t.TempDir()
	writeRepoFile(t, repo, "README.md", "# Todos\n\nA Flask API for todos.\n")
	writeRepoFile(t, repo, "app.py", "import flask\n\napp = flask.Flask(__name__)\n")
	briefingPath := writeBriefing(t, "Build a REST API with authentication.")

	invoker := &fakeInvoker{response: fullNarrative}
	result := newTestAnalyzer(invoker).Analyze(context.Background(), repo, briefingPath,
		map[string]any{"commit_count": 12})

	require.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.TierAnalysis)

	for _, sec := range reportSections {
		assert.Contains(t, result.TierAnalysis.EvaluacionGeneral, sec.heading)
	}
	assert.Equal(t, map[string]any{"commit_count": 12}, result.RepositoryStats)
	assert.Len(t, result.TierAnalysis.AnalisisPorNivel, 4)
	assert.NotEmpty(t, result.AnalysisDate)

	// The prompt carries the detected stack and the labeled retrieval blocks.
	require.Len(t, invoker.messages, 2)
	prompt := invoker.messages[1].Content
	assert.Contains(t, prompt, "Flask")
	assert.Contains(t, prompt, "Query: ¿Qué arquitectura y tecnologías se utilizan?")
	assert.Contains(t, prompt, "--- FROM CODE FILE: app.py ---")
	assert.Contains(t, prompt, "commit_count")
}

func TestAnalyze_MissingBriefing(t *testing.T) {
	repo := t.TempDir()
	writeRepoFile(t, repo, "app.py", "import flask\n")

	result := newTestAnalyzer(&fakeInvoker{response: fullNarrative}).
		Analyze(context.Background(), repo, filepath.Join(repo, "missing.pdf"), nil)

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "Briefing file not found")
}

func TestAnalyze_MissingRepository(t *testing.T) {
	briefingPath := writeBriefing(t, "anything")

	result := newTestAnalyzer(&fakeInvoker{}).
		Analyze(context.Background(), "/nonexistent/repo", briefingPath, nil)

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "Repository path not found")
}

func TestAnalyze_EmptyRepositoryFails(t *testing.T) {
	briefingPath := writeBriefing(t, "anything")

	result := newTestAnalyzer(&fakeInvoker{response: fullNarrative}).
		Analyze(context.Background(), t.TempDir(), briefingPath, nil)

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "Failed to process repository content")
}

func TestAnalyze_LLMFailure(t *testing.T) {
	repo := t.TempDir()
	writeRepoFile(t, repo, "app.py", "import flask\n")
	briefingPath := writeBriefing(t, "Build a REST API.")

	result := newTestAnalyzer(&fakeInvoker{err: errors.New("provider down")}).
		Analyze(context.Background(), repo, briefingPath, nil)

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "Failed to generate analysis")
}

func TestAnalyze_RepairsMissingSections(t *testing.T) {
	repo := t.TempDir()
	writeRepoFile(t, repo, "app.py", "import flask\n")
	briefingPath := writeBriefing(t, "Build a REST API.")

	partial := "# 1. Análisis Técnico Multinivel\nContenido uno\n" +
		"## 2. Niveles de Objetivos Alcanzados\nContenido dos\n"
	result := newTestAnalyzer(&fakeInvoker{response: partial}).
		Analyze(context.Background(), repo, briefingPath, nil)

	require.Equal(t, StatusSuccess, result.Status)
	narrative := result.TierAnalysis.EvaluacionGeneral

	assert.Contains(t, narrative, "Contenido uno")
	assert.Contains(t, narrative, "Contenido dos")
	assert.Contains(t, narrative, "3. Uso de IA y Señales de Alerta Pedagógica")
	assert.Contains(t, narrative, "4. Mejoras Priorizadas para Madurez Técnica")
	assert.Contains(t, narrative, "5. Elementos para Revisión Docente")
}

func TestRepairSections_CompleteNarrativeUnchanged(t *testing.T) {
	assert.Equal(t, fullNarrative, repairSections(fullNarrative))
}

func TestRepairSections_AppendsPlaceholders(t *testing.T) {
	got := repairSections("# 1. Análisis Técnico Multinivel\nSolo esto")

	assert.Contains(t, got, "Solo esto")
	assert.Contains(t, got, "Sección no generada")
	for _, sec := range reportSections[1:] {
		assert.Contains(t, got, sec.heading)
	}
}

func TestClassifyProjectType(t *testing.T) {
	tests := []struct {
		name     string
		briefing string
		want     string
	}{
		{"generative ai", "Construir un chatbot con LLM y RAG", "genai"},
		{"nlp", "Clasificación de texto con spaCy", "nlp"},
		{"explicit ml", "Entrenar un modelo con sklearn", "ml"},
		{"default", "Build a REST API", "ml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyProjectType(tt.briefing, techdetect.Inventory{}))
		})
	}
}
