// Package chunk splits repository files and briefing prose into bounded,
// overlapping text chunks, the unit of embedding and retrieval.
package chunk

import "github.com/google/uuid"

// Kind tags a chunk with the kind of content it came from.
type Kind string

const (
	// KindCode marks chunks cut from repository source files.
	KindCode Kind = "code"
	// KindBriefing marks chunks cut from the briefing document.
	KindBriefing Kind = "briefing"
	// KindMetadata marks synthetic chunks such as the technology summary.
	KindMetadata Kind = "metadata"
)

// Chunk is a bounded span of text with source attribution.
type Chunk struct {
	ID      string
	Content string
	Source  string // Origin file relative path, or a synthetic label like "briefing"
	Kind    Kind
}

// New creates a chunk with a fresh ID.
func New(content, source string, kind Kind) Chunk {
	return Chunk{
		ID:      uuid.New().String(),
		Content: content,
		Source:  source,
		Kind:    kind,
	}
}
