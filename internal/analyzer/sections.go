package analyzer

import (
	"fmt"
	"strings"
)

// section is one entry of the five-part report structure the model is
// instructed to produce. Markers are matched case-insensitively anywhere in
// the narrative; Spanish first, English variants in case the model drifts.
type section struct {
	number  int
	heading string
	markers []string
}

var reportSections = []section{
	{1, "Análisis Técnico Multinivel", []string{
		"análisis técnico multinivel", "analisis tecnico multinivel", "multilevel technical analysis"}},
	{2, "Niveles de Objetivos Alcanzados", []string{
		"niveles de objetivos alcanzados", "objetivos alcanzados", "objective levels achieved"}},
	{3, "Uso de IA y Señales de Alerta Pedagógica", []string{
		"uso de ia", "señales de alerta pedagógica", "senales de alerta pedagogica", "ai usage"}},
	{4, "Mejoras Priorizadas para Madurez Técnica", []string{
		"mejoras priorizadas", "madurez técnica", "madurez tecnica", "prioritized improvements"}},
	{5, "Elementos para Revisión Docente", []string{
		"revisión docente", "revision docente", "teacher review"}},
}

// repairSections verifies the narrative contains every report section and
// appends any missing ones with the standard heading and a placeholder
// body, preserving the generated text untouched. Malformed structure is
// repaired here, never surfaced to the caller as a failure.
func repairSections(narrative string) string {
	lower := strings.ToLower(narrative)

	var missing []section
	for _, sec := range reportSections {
		if !containsAny(lower, sec.markers) {
			missing = append(missing, sec)
		}
	}
	if len(missing) == 0 {
		return narrative
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(narrative, "\n"))
	for _, sec := range missing {
		fmt.Fprintf(&b, "\n\n## %d. %s\n\nSección no generada por el modelo.", sec.number, sec.heading)
	}
	return b.String()
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
