package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/reposcope/reposcope/internal/embedding"
)

// ComplianceThreshold is the cosine similarity above which a repository
// document counts as covering the briefing.
const ComplianceThreshold = 0.7

// previewLen bounds the document excerpt carried in each result.
const previewLen = 100

// DocumentResult scores one repository document against the briefing.
type DocumentResult struct {
	SectionPreview string  `json:"section_preview"`
	Similarity     float64 `json:"similarity"`
	Compliant      bool    `json:"compliant"`
}

// Summary aggregates the per-document results.
type Summary struct {
	TotalDocuments    int     `json:"total_documents"`
	CompliantCount    int     `json:"compliant_count"`
	OverallPercentage float64 `json:"overall_percentage"`
}

// Checker scores whole documents against a briefing without chunking or an
// LLM. It is the lightweight alternative to the full analysis pipeline.
type Checker struct {
	embedder embedding.Embedder
	logger   *slog.Logger
}

func NewChecker(embedder embedding.Embedder, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{embedder: embedder, logger: logger}
}

// CheckCompliance embeds the briefing and every repository document as
// single vectors and marks each document compliant when its cosine
// similarity to the briefing reaches ComplianceThreshold. Similarity is
// reported as a percentage rounded to two decimals. Results are returned in
// input order.
func (c *Checker) CheckCompliance(ctx context.Context, repoDocs []string, briefingText string) ([]DocumentResult, error) {
	if len(repoDocs) == 0 {
		return nil, fmt.Errorf("no repository documents to check")
	}

	briefingVec, err := c.embedder.EmbedQuery(ctx, briefingText)
	if err != nil {
		return nil, fmt.Errorf("embed briefing: %w", err)
	}

	docVecs, err := c.embedder.EmbedDocuments(ctx, repoDocs)
	if err != nil {
		return nil, fmt.Errorf("embed repository documents: %w", err)
	}

	results := make([]DocumentResult, len(repoDocs))
	for i, vec := range docVecs {
		sim := cosine(briefingVec, vec)
		pct := math.Round(sim*100*100) / 100
		results[i] = DocumentResult{
			SectionPreview: preview(repoDocs[i]),
			Similarity:     pct,
			Compliant:      sim >= ComplianceThreshold,
		}
	}
	c.logger.Info("Compliance check complete", "documents", len(results))
	return results, nil
}

// Summarize counts compliant documents and computes the overall share as a
// percentage rounded to two decimals.
func Summarize(results []DocumentResult) Summary {
	s := Summary{TotalDocuments: len(results)}
	for _, r := range results {
		if r.Compliant {
			s.CompliantCount++
		}
	}
	if s.TotalDocuments > 0 {
		pct := float64(s.CompliantCount) / float64(s.TotalDocuments) * 100
		s.OverallPercentage = math.Round(pct*100) / 100
	}
	return s
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen])
}

// cosine assumes unit vectors from the Embedder, so the dot product is the
// cosine similarity. Mismatched lengths score zero.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
