package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/reposcope/reposcope/internal/briefing"
	"github.com/reposcope/reposcope/internal/llm"
	"github.com/reposcope/reposcope/internal/techdetect"
	"github.com/reposcope/reposcope/internal/vectorindex"
)

// DefaultLLMTimeout bounds the single model invocation.
const DefaultLLMTimeout = 120 * time.Second

// retrievalK is the number of chunks retrieved per analysis query.
const retrievalK = 5

// analysisQueries is the fixed retrieval battery. Each query is retrieved
// independently and its context concatenated under a labeled block. The
// fixed set trades recall precision for determinism and reviewability.
var analysisQueries = []string{
	"¿Cuáles son los requisitos técnicos del briefing?",
	"¿Qué componentes y funcionalidades existen en el repositorio?",
	"¿Cómo está organizado el código?",
	"¿Qué arquitectura y tecnologías se utilizan?",
	"¿Qué frameworks y herramientas están configurados?",
	"¿Qué archivos de dependencias existen?",
}

// Invoker is the single LLM entry point the orchestrator needs. *llm.Client
// satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, messages []llm.Message) (string, error)
}

// Analyzer runs one retrieval-augmented compliance analysis per call.
type Analyzer struct {
	processor  *Processor
	llm        Invoker
	llmTimeout time.Duration
	logger     *slog.Logger
}

func New(processor *Processor, invoker Invoker, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		processor:  processor,
		llm:        invoker,
		llmTimeout: DefaultLLMTimeout,
		logger:     logger,
	}
}

// Analyze ingests the repository and briefing, retrieves context for the
// fixed query battery, invokes the model once and returns the validated
// report. It never returns a Go error: every failure comes back as a
// Result with StatusError.
func (a *Analyzer) Analyze(ctx context.Context, repoPath, briefingPath string, stats map[string]any) *Result {
	if _, err := os.Stat(repoPath); err != nil {
		a.logger.Error("Repository path unusable", "path", repoPath, "error", err)
		return errorResult("Repository path not found")
	}
	if _, err := os.Stat(briefingPath); err != nil {
		a.logger.Error("Briefing path unusable", "path", briefingPath, "error", err)
		return errorResult("Briefing file not found")
	}

	index, inventory, err := a.processor.ProcessRepository(ctx, repoPath)
	if err != nil {
		a.logger.Error("Repository processing failed", "error", err)
		return errorResult("Failed to process repository content")
	}

	briefingText, err := briefing.LoadText(briefingPath)
	if err != nil {
		a.logger.Error("Briefing extraction failed", "error", err)
		return errorResult("Failed to extract briefing text")
	}
	if err := a.processor.ProcessBriefing(ctx, index, briefingText); err != nil {
		a.logger.Error("Briefing indexing failed", "error", err)
		return errorResult("Failed to process briefing content")
	}

	retrieved, err := a.retrieveAll(ctx, index)
	if err != nil {
		a.logger.Error("Context retrieval failed", "error", err)
		return errorResult("Failed to retrieve analysis context")
	}

	narrative, err := a.invoke(ctx, buildPrompt(retrieved, inventory, stats))
	if err != nil {
		a.logger.Error("LLM invocation failed", "error", err)
		if errors.Is(err, ErrTimeout) {
			return errorResult("Analysis timed out")
		}
		return errorResult("Failed to generate analysis")
	}
	narrative = repairSections(narrative)

	return &Result{
		Status:          StatusSuccess,
		ProjectType:     classifyProjectType(briefingText, inventory),
		RepositoryStats: stats,
		TierAnalysis: &TierAnalysis{
			EvaluacionGeneral: narrative,
			AnalisisPorNivel:  emptyTiers(),
		},
		AnalysisDate: time.Now().Format(time.RFC3339),
	}
}

// retrieveAll runs the query battery and concatenates the labeled blocks.
func (a *Analyzer) retrieveAll(ctx context.Context, index *vectorindex.Index) (string, error) {
	var b strings.Builder
	for _, query := range analysisQueries {
		block, err := a.processor.FormattedContext(ctx, index, query, retrievalK)
		if err != nil {
			return "", fmt.Errorf("query %q: %w", query, err)
		}
		fmt.Fprintf(&b, "Query: %s\n%s\n", query, block)
	}
	return b.String(), nil
}

func buildPrompt(retrieved string, inventory techdetect.Inventory, stats map[string]any) []llm.Message {
	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		statsJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("Analiza el siguiente repositorio contra los requisitos del briefing.\n\n")
	b.WriteString("CONTEXTO RECUPERADO:\n")
	b.WriteString(retrieved)
	b.WriteString("\n\nTECNOLOGÍAS DETECTADAS:\n")
	b.WriteString(inventory.JSON())
	b.WriteString("\n\nESTADÍSTICAS DEL REPOSITORIO:\n")
	b.Write(statsJSON)
	b.WriteString("\n\nInstrucciones:\n")
	b.WriteString("- Mapea los hallazgos a los niveles de requisitos del briefing.\n")
	b.WriteString("- No recomiendes tecnologías que ya están detectadas.\n")
	b.WriteString("- Responde exactamente con esta estructura de cinco secciones:\n")
	for _, sec := range reportSections {
		fmt.Fprintf(&b, "  %d. %s\n", sec.number, sec.heading)
	}

	return []llm.Message{
		llm.SystemMessage("Eres un analizador técnico de proyectos. Evalúa el cumplimiento del repositorio respecto a los requisitos del briefing."),
		llm.UserMessage(b.String()),
	}
}

func (a *Analyzer) invoke(ctx context.Context, messages []llm.Message) (string, error) {
	invokeCtx, cancel := context.WithTimeout(ctx, a.llmTimeout)
	defer cancel()

	out, err := a.llm.Invoke(invokeCtx, messages)
	if err != nil {
		return "", wrapDeadline(err)
	}
	return out, nil
}

// projectTypeMarkers classify the briefing, most specific first: a GenAI
// project usually also reads as NLP and ML.
var projectTypeMarkers = []struct {
	projectType string
	markers     []string
}{
	{"genai", []string{"generativa", "generative", "llm", "gpt", "rag", "langchain", "embedding", "prompt"}},
	{"nlp", []string{"lenguaje natural", "nlp", "texto", "spacy", "nltk", "transformers", "chatbot"}},
	{"ml", []string{"machine learning", "aprendizaje", "modelo", "sklearn", "tensorflow", "torch", "predicción", "prediccion"}},
}

func classifyProjectType(briefingText string, inventory techdetect.Inventory) string {
	haystack := strings.ToLower(briefingText + " " + strings.Join(inventory.Libraries, " ") +
		" " + strings.Join(inventory.Frameworks, " "))
	for _, pt := range projectTypeMarkers {
		if containsAny(haystack, pt.markers) {
			return pt.projectType
		}
	}
	return "ml"
}
