package chunk

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is a markdown document section cut at an H1/H2 boundary, with its
// header hierarchy preserved for retrieval context.
type Section struct {
	HeaderPath string // "# Title > ## Subsection"
	Content    string // Section text with the header path prepended
}

// MarkdownSplitter splits markdown files at header boundaries so README and
// doc chunks keep their section context. Headerless documents come back as
// a single section.
type MarkdownSplitter struct {
	parser goldmark.Markdown
}

func NewMarkdownSplitter() *MarkdownSplitter {
	return &MarkdownSplitter{
		parser: goldmark.New(
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Split cuts source at H1 and H2 boundaries. Each section's content has the
// header path prepended so a retrieved chunk still identifies where in the
// document it came from.
func (m *MarkdownSplitter) Split(source []byte) ([]Section, error) {
	doc := m.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect headings: %w", err)
	}

	if len(tree.Items) == 0 {
		return []Section{{HeaderPath: "", Content: string(source)}}, nil
	}

	var sections []Section
	m.collect(doc, source, tree.Items, nil, &sections)
	return sections, nil
}

// collect walks the heading tree and extracts the text of each section.
func (m *MarkdownSplitter) collect(doc ast.Node, source []byte, items toc.Items, ancestors []string, sections *[]Section) {
	for i, item := range items {
		path := append(ancestors, string(item.Title))
		headerPath := joinHeaderPath(path)

		heading := headingByID(doc, string(item.ID))
		if heading == nil {
			continue
		}

		start := heading.Lines().At(0)
		var end text.Segment
		if i+1 < len(items) {
			if next := headingByID(doc, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0)
			}
		} else {
			end = nextBoundary(doc, heading, heading.(*ast.Heading).Level)
		}

		body := sliceSource(source, start, end)
		*sections = append(*sections, Section{
			HeaderPath: headerPath,
			Content:    headerPath + "\n\n" + body,
		})

		if len(item.Items) > 0 {
			m.collect(doc, source, item.Items, path, sections)
		}
	}
}

// joinHeaderPath renders a heading hierarchy like
// "# Installation > ## Prerequisites".
func joinHeaderPath(titles []string) string {
	parts := make([]string, len(titles))
	for i, title := range titles {
		parts[i] = strings.Repeat("#", i+1) + " " + title
	}
	return strings.Join(parts, " > ")
}

// headingByID finds the heading node carrying the given auto-generated ID.
func headingByID(root ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			if attr, ok := n.AttributeString("id"); ok && string(attr.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextBoundary finds the first heading after current at the same or a higher
// level. A zero segment means the section runs to end of document.
func nextBoundary(root ast.Node, current ast.Node, level int) text.Segment {
	var boundary ast.Node
	passed := false

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !passed {
			if n == current {
				passed = true
			}
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= level {
			boundary = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if boundary != nil {
		return boundary.Lines().At(0)
	}
	return text.Segment{}
}

// sliceSource extracts the text between two line segments, to end of
// document when end is the zero segment.
func sliceSource(source []byte, start, end text.Segment) string {
	if end.Start == 0 && end.Stop == 0 {
		return strings.TrimSpace(string(source[start.Start:]))
	}
	return strings.TrimSpace(string(source[start.Start:end.Start]))
}
