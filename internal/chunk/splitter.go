package chunk

import "strings"

// Splitter cuts text into chunks of at most chunkSize characters, trying a
// cascade of separators from most to least structural before falling back
// to a hard character cut. Consecutive chunks from one input overlap by the
// configured amount so content spanning a boundary stays whole in at least
// one chunk.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewCodeSplitter returns the splitter used for source files: 3000-character
// chunks with 200 overlap, preferring class and function boundaries.
func NewCodeSplitter() *Splitter {
	return &Splitter{
		chunkSize:  3000,
		overlap:    200,
		separators: []string{"\nclass ", "\ndef ", "\nfunc ", "\n\n", "\n", " ", ""},
	}
}

// NewDocSplitter returns the splitter used for briefing prose: 1000-character
// chunks with 150 overlap, preferring heading and sentence boundaries.
func NewDocSplitter() *Splitter {
	return &Splitter{
		chunkSize:  1000,
		overlap:    150,
		separators: []string{"\n## ", "\n### ", "\n\n", "\n", ". ", " ", ""},
	}
}

// NewSplitter creates a splitter with explicit bounds and separator cascade.
func NewSplitter(chunkSize, overlap int, separators []string) *Splitter {
	return &Splitter{chunkSize: chunkSize, overlap: overlap, separators: separators}
}

// ChunkSize returns the configured maximum chunk length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Split cuts text into chunks. Every chunk is at most ChunkSize characters;
// concatenating all chunks covers every character of the input at least once.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.merge(s.divide(text, s.separators))
}

// divide recursively cuts text into pieces no longer than chunkSize, trying
// each separator in order and hard-cutting when none is left.
func (s *Splitter) divide(text string, separators []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 || separators[0] == "" {
		return s.hardCut(text)
	}

	sep, rest := separators[0], separators[1:]
	parts := splitKeepingSeparator(text, sep)
	if len(parts) == 1 {
		// Separator absent, try the next one.
		return s.divide(text, rest)
	}

	var pieces []string
	for _, part := range parts {
		if len(part) <= s.chunkSize {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, s.divide(part, rest)...)
		}
	}
	return pieces
}

// hardCut slices text into chunkSize windows stepping by chunkSize-overlap,
// so even boundary-free input keeps the overlap guarantee.
func (s *Splitter) hardCut(text string) []string {
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}
	var out []string
	for start := 0; start < len(text); start += step {
		end := min(start+s.chunkSize, len(text))
		out = append(out, text[start:end])
		if end == len(text) {
			break
		}
	}
	return out
}

// merge greedily packs pieces into chunks up to chunkSize, carrying an
// overlap tail from each emitted chunk into the next.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	current := ""

	for _, piece := range pieces {
		if current != "" && len(current)+len(piece) > s.chunkSize {
			chunks = append(chunks, current)
			carry := overlapTail(current, s.overlap)
			if len(carry)+len(piece) > s.chunkSize {
				carry = ""
			}
			current = carry
		}
		current += piece
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// overlapTail returns the last n characters of text.
func overlapTail(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[len(text)-n:]
}

// splitKeepingSeparator splits text at each occurrence of sep, keeping the
// separator attached to the start of the following part so no characters are
// lost. Empty parts are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var parts []string
	start := 0
	for {
		idx := strings.Index(text[start+1:], sep)
		if idx < 0 {
			break
		}
		cut := start + 1 + idx
		if part := text[start:cut]; part != "" {
			parts = append(parts, part)
		}
		start = cut
	}
	if part := text[start:]; part != "" {
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}
