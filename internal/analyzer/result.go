// Package analyzer drives the full pipeline: repository ingestion,
// retrieval, the single LLM invocation, and validation/repair of the
// structured report.
package analyzer

import (
	"time"
)

// Status values carried by Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Tier level keys of the structured per-level payload, in report order.
var TierLevels = []string{"nivel_esencial", "nivel_medio", "nivel_avanzado", "nivel_experto"}

// TierDetail is the structured scoring payload for one requirement tier.
// The narrative in EvaluacionGeneral is the primary output; these fields
// are kept zero-filled so report consumers always find the full shape.
type TierDetail struct {
	PorcentajeCompletitud float64  `json:"porcentaje_completitud"`
	RequisitosCumplidos   []string `json:"requisitos_cumplidos"`
	RequisitosFaltantes   []string `json:"requisitos_faltantes"`
}

// TierAnalysis holds the model's narrative plus the structured per-level
// breakdown.
type TierAnalysis struct {
	EvaluacionGeneral string                `json:"evaluacion_general"`
	AnalisisPorNivel  map[string]TierDetail `json:"analisis_por_nivel"`
	PuntuacionMadurez float64               `json:"puntuacion_madurez"`
}

// Result is the outcome of one analysis run. Analyze never returns a Go
// error: failures come back as a Result with StatusError and a short
// human-readable reason.
type Result struct {
	Status          string         `json:"status"`
	Error           string         `json:"error,omitempty"`
	ProjectType     string         `json:"project_type,omitempty"`
	RepositoryStats map[string]any `json:"repository_stats,omitempty"`
	TierAnalysis    *TierAnalysis  `json:"tier_analysis,omitempty"`
	AnalysisDate    string         `json:"analysis_date"`
}

func errorResult(reason string) *Result {
	return &Result{
		Status:       StatusError,
		Error:        reason,
		AnalysisDate: time.Now().Format(time.RFC3339),
	}
}

// emptyTiers builds the zero-filled per-level map so every consumer sees
// all four tiers regardless of what the narrative covers.
func emptyTiers() map[string]TierDetail {
	tiers := make(map[string]TierDetail, len(TierLevels))
	for _, level := range TierLevels {
		tiers[level] = TierDetail{
			RequisitosCumplidos: []string{},
			RequisitosFaltantes: []string{},
		}
	}
	return tiers
}
