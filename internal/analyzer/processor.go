package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reposcope/reposcope/internal/chunk"
	"github.com/reposcope/reposcope/internal/embedding"
	"github.com/reposcope/reposcope/internal/repofs"
	"github.com/reposcope/reposcope/internal/techdetect"
	"github.com/reposcope/reposcope/internal/vectorindex"
)

const (
	// maxContentBytes bounds how much of a single file is chunked.
	maxContentBytes = 50_000
	truncationMark  = "\n...[content truncated]..."

	// addBatchSize keeps index insertions small enough that one failed
	// batch loses little work.
	addBatchSize = 50

	// DefaultBatchTimeout bounds each embedding batch insertion.
	DefaultBatchTimeout = 60 * time.Second
)

// ErrNoProcessableFiles is returned when the content filter leaves nothing
// to index.
var ErrNoProcessableFiles = errors.New("no processable files in repository")

// ErrTimeout marks a deadline expiry in the pipeline, distinct from
// provider or indexing failures.
var ErrTimeout = errors.New("operation timed out")

// Processor turns a repository tree and a briefing into a populated
// request-scoped vector index. One Processor serves one analysis run.
type Processor struct {
	filter       *repofs.Filter
	detector     *techdetect.Detector
	codeSplitter *chunk.Splitter
	docSplitter  *chunk.Splitter
	mdSplitter   *chunk.MarkdownSplitter
	embedder     embedding.Embedder
	batchTimeout time.Duration
	logger       *slog.Logger
}

func NewProcessor(embedder embedding.Embedder, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		filter:       repofs.NewFilter(logger),
		detector:     techdetect.NewDetector(logger),
		codeSplitter: chunk.NewCodeSplitter(),
		docSplitter:  chunk.NewDocSplitter(),
		mdSplitter:   chunk.NewMarkdownSplitter(),
		embedder:     embedder,
		batchTimeout: DefaultBatchTimeout,
		logger:       logger,
	}
}

// ProcessRepository filters, detects, chunks and indexes the tree at root.
// The index is seeded with the synthetic technology summary chunk so that a
// later batch failure still leaves a searchable metadata-only index.
func (p *Processor) ProcessRepository(ctx context.Context, root string) (*vectorindex.Index, techdetect.Inventory, error) {
	files, err := p.filter.RelevantFiles(root)
	if err != nil {
		return nil, techdetect.Inventory{}, fmt.Errorf("scan repository: %w", err)
	}
	if len(files) == 0 {
		return nil, techdetect.Inventory{}, ErrNoProcessableFiles
	}

	inventory := p.detector.Detect(root)
	techChunk := chunk.New(
		"Repository Technologies:\n"+inventory.JSON(),
		"technology_analysis",
		chunk.KindMetadata,
	)

	var chunks []chunk.Chunk
	for _, sf := range files {
		content, err := os.ReadFile(filepath.Join(root, sf.Path))
		if err != nil {
			p.logger.Warn("Skipping unreadable file", "path", sf.Path, "error", err)
			continue
		}
		chunks = append(chunks, p.chunkFile(sf, truncate(string(content)))...)
	}
	p.logger.Info("Repository chunked", "files", len(files), "chunks", len(chunks))

	index, err := vectorindex.Build(ctx, p.embedder, []chunk.Chunk{techChunk})
	if err != nil {
		return nil, inventory, fmt.Errorf("build index: %w", wrapDeadline(err))
	}

	if err := p.addBatched(ctx, index, chunks); err != nil {
		// Metadata-only fallback: the seeded index stays usable.
		p.logger.Error("Batch indexing failed, continuing with metadata-only index", "error", err)
	}
	return index, inventory, nil
}

// ProcessBriefing chunks the briefing prose with the doc splitter and adds
// it to the same index, tagged so retrieved context can be attributed.
func (p *Processor) ProcessBriefing(ctx context.Context, index *vectorindex.Index, text string) error {
	pieces := p.docSplitter.Split(text)
	chunks := make([]chunk.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, chunk.New(piece, "briefing", chunk.KindBriefing))
	}
	p.logger.Info("Briefing chunked", "chunks", len(chunks))
	return p.addBatched(ctx, index, chunks)
}

// FormattedContext retrieves the top-k chunks for the query and renders
// them as labeled context blocks.
func (p *Processor) FormattedContext(ctx context.Context, index *vectorindex.Index, query string, k int) (string, error) {
	hits, err := index.Search(ctx, query, k)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	var b strings.Builder
	for _, hit := range hits {
		if hit.Chunk.Kind == chunk.KindBriefing {
			fmt.Fprintf(&b, "--- FROM BRIEFING ---\n%s\n", hit.Chunk.Content)
		} else {
			fmt.Fprintf(&b, "--- FROM CODE FILE: %s ---\n%s\n", hit.Chunk.Source, hit.Chunk.Content)
		}
	}
	return b.String(), nil
}

func (p *Processor) addBatched(ctx context.Context, index *vectorindex.Index, chunks []chunk.Chunk) error {
	total := (len(chunks) + addBatchSize - 1) / addBatchSize
	for i := 0; i < len(chunks); i += addBatchSize {
		end := min(i+addBatchSize, len(chunks))
		p.logger.Info("Adding vector batch", "batch", i/addBatchSize+1, "total", total)

		batchCtx, cancel := context.WithTimeout(ctx, p.batchTimeout)
		err := index.Add(batchCtx, chunks[i:end])
		cancel()
		if err != nil {
			return fmt.Errorf("batch %d/%d: %w", i/addBatchSize+1, total, wrapDeadline(err))
		}
	}
	return nil
}

// chunkFile splits markdown at header boundaries first so section context
// survives, and everything else with the code splitter.
func (p *Processor) chunkFile(sf repofs.SourceFile, content string) []chunk.Chunk {
	kind := chunk.KindCode

	if sf.Ext == ".md" {
		sections, err := p.mdSplitter.Split([]byte(content))
		if err == nil {
			var out []chunk.Chunk
			for _, sec := range sections {
				if len(sec.Content) <= p.docSplitter.ChunkSize() {
					out = append(out, chunk.New(sec.Content, sf.Path, kind))
					continue
				}
				for _, piece := range p.docSplitter.Split(sec.Content) {
					out = append(out, chunk.New(piece, sf.Path, kind))
				}
			}
			return out
		}
		p.logger.Warn("Markdown split failed, falling back to doc splitter", "path", sf.Path, "error", err)
		var out []chunk.Chunk
		for _, piece := range p.docSplitter.Split(content) {
			out = append(out, chunk.New(piece, sf.Path, kind))
		}
		return out
	}

	var out []chunk.Chunk
	for _, piece := range p.codeSplitter.Split(content) {
		out = append(out, chunk.New(piece, sf.Path, kind))
	}
	return out
}

func truncate(content string) string {
	if len(content) <= maxContentBytes {
		return content
	}
	return content[:maxContentBytes] + truncationMark
}

func wrapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
