// Package main provides the reposcope CLI: retrieval-augmented compliance
// analysis of a repository against a briefing document.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/reposcope/reposcope/internal/analyzer"
	"github.com/reposcope/reposcope/internal/briefing"
	"github.com/reposcope/reposcope/internal/embedding"
	"github.com/reposcope/reposcope/internal/gitstats"
	"github.com/reposcope/reposcope/internal/llm"
	"github.com/reposcope/reposcope/internal/repofs"
)

var repoURL string

var rootCmd = &cobra.Command{
	Use:   "reposcope",
	Short: "Repository compliance analysis against a briefing document",
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo-path> <briefing-path>",
	Short: "Run the full retrieval-augmented analysis",
	Long: `Indexes the repository and briefing, retrieves context for the analysis
query battery, and generates the five-section compliance report.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  GROQ_API_KEY   Groq API key for the primary LLM (optional, falls back to Ollama)
  GROQ_MODEL     Groq model name (default: ` + llm.DefaultGroqModel + `)
  OLLAMA_HOST    Ollama host (default: ` + llm.DefaultOllamaHost + `)
  OLLAMA_MODEL   Ollama model name (default: ` + llm.DefaultOllamaModel + `)
  GITHUB_TOKEN   GitHub token for repository statistics (optional)
  EMBEDDING_BATCH_SIZE  Embedding request batch size (default: 500)
  LOG_LEVEL      info or debug (default: info)`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

var complianceCmd = &cobra.Command{
	Use:   "compliance <repo-path> <briefing-path>",
	Short: "Run the embedding-only compliance check",
	Long: `Embeds the briefing and each repository document as whole texts and
reports per-document cosine similarity, without invoking an LLM.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	Args: cobra.ExactArgs(2),
	RunE: runCompliance,
}

func init() {
	analyzeCmd.Flags().StringVar(&repoURL, "repo-url", "", "GitHub URL for repository statistics")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(complianceCmd)
}

func main() {
	// Load .env if present for local development; missing is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := setupLogger()
	repoPath, briefingPath := args[0], args[1]

	embedder, err := embedding.NewOpenAIEmbedder(getEnvInt("EMBEDDING_BATCH_SIZE", 0))
	if err != nil {
		return fmt.Errorf("embedding client: %w", err)
	}

	llmClient, err := llm.NewClient(llm.ConfigFromEnv(), logger)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	stats := map[string]any{}
	if repoURL != "" {
		ghClient, err := gitstats.NewClient(logger)
		if err != nil {
			return fmt.Errorf("github client: %w", err)
		}
		stats = ghClient.Collect(ctx, repoURL).ToMap()
	}

	a := analyzer.New(analyzer.NewProcessor(embedder, logger), llmClient, logger)
	result := a.Analyze(ctx, repoPath, briefingPath, stats)

	return printJSON(result)
}

func runCompliance(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := setupLogger()
	repoPath, briefingPath := args[0], args[1]

	embedder, err := embedding.NewOpenAIEmbedder(getEnvInt("EMBEDDING_BATCH_SIZE", 0))
	if err != nil {
		return fmt.Errorf("embedding client: %w", err)
	}

	briefingText, err := briefing.LoadText(briefingPath)
	if err != nil {
		return fmt.Errorf("briefing: %w", err)
	}

	docs, err := repositoryDocuments(repoPath, logger)
	if err != nil {
		return err
	}

	checker := briefing.NewChecker(embedder, logger)
	results, err := checker.CheckCompliance(ctx, docs, briefingText)
	if err != nil {
		return fmt.Errorf("compliance check: %w", err)
	}

	return printJSON(map[string]any{
		"results": results,
		"summary": briefing.Summarize(results),
	})
}

// repositoryDocuments loads the filtered repository files as whole texts
// for the document-level compliance path.
func repositoryDocuments(repoPath string, logger *slog.Logger) ([]string, error) {
	files, err := repofs.NewFilter(logger).RelevantFiles(repoPath)
	if err != nil {
		return nil, fmt.Errorf("scan repository: %w", err)
	}

	var docs []string
	for _, sf := range files {
		content, err := os.ReadFile(filepath.Join(repoPath, sf.Path))
		if err != nil {
			logger.Warn("Skipping unreadable file", "path", sf.Path, "error", err)
			continue
		}
		docs = append(docs, string(content))
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no readable repository documents under %s", repoPath)
	}
	return docs, nil
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if getEnv("LOG_LEVEL", "info") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
