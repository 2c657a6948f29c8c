// Package briefing loads requirement documents and scores repository
// content against them by embedding similarity.
package briefing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LoadText returns the briefing text for a path: PDFs go through
// ExtractText, anything else is read as plain text. Empty briefings are an
// error either way.
func LoadText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ExtractText(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("briefing %s is empty", path)
	}
	return text, nil
}

// ExtractText reads a briefing PDF and returns its plain text with page
// contents joined by single spaces. Pages that cannot be decoded are
// skipped rather than failing the whole document.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open briefing pdf: %w", err)
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("briefing pdf %s: no extractable text", path)
	}
	return strings.Join(parts, " "), nil
}
