package ingestion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/core"
	"github.com/poiesic/pdfchat/retrieval"
	"github.com/tmc/langchaingo/textsplitter"
)

// DefaultTempPath is where uploads are written before extraction.
const DefaultTempPath = "./temp.pdf"

// Extractor reads page texts from a PDF on disk.
type Extractor func(path string) ([]core.Page, error)

// Pipeline turns one uploaded PDF into the active similarity index.
// Uploads are serialised; the shared temporary file is never written by two
// uploads at once.
type Pipeline struct {
	holder      *retrieval.Holder
	indexer     *Indexer
	ownsIndexer bool
	splitter    textsplitter.TextSplitter
	extract     Extractor
	tempPath    string
	logger      *slog.Logger

	mu sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// WithTempPath sets the transient file uploads are written to.
// Default is DefaultTempPath.
func WithTempPath(path string) Option {
	return func(p *Pipeline) error {
		if path == "" {
			path = DefaultTempPath
		}
		p.tempPath = path
		return nil
	}
}

// WithSplitter sets the chunking strategy.
// Default is a WindowSplitter with DefaultChunkSize and DefaultChunkOverlap.
func WithSplitter(splitter textsplitter.TextSplitter) Option {
	return func(p *Pipeline) error {
		if splitter != nil {
			p.splitter = splitter
		}
		return nil
	}
}

// WithIndexer sets the indexer used to embed chunks. The caller keeps
// ownership and must release it.
func WithIndexer(indexer *Indexer) Option {
	return func(p *Pipeline) error {
		if indexer == nil {
			return nil
		}
		if p.ownsIndexer && p.indexer != nil {
			p.indexer.Release()
		}
		p.indexer = indexer
		p.ownsIndexer = false
		return nil
	}
}

// WithExtractor replaces ExtractPages.
func WithExtractor(extract Extractor) Option {
	return func(p *Pipeline) error {
		if extract != nil {
			p.extract = extract
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline that installs its indexes into holder.
func NewPipeline(embedder ai.Embedder, holder *retrieval.Holder, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if holder == nil {
		return nil, ErrHolderRequired
	}

	indexer, err := NewIndexer(embedder)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		holder:      holder,
		indexer:     indexer,
		ownsIndexer: true,
		splitter:    WindowSplitter{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		extract:     ExtractPages,
		tempPath:    DefaultTempPath,
		logger:      slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest writes r to the temporary path, extracts its pages, chunks and
// embeds them, and makes the result the active index. On any failure the
// previously active index is left in place.
func (p *Pipeline) Ingest(ctx context.Context, name string, r io.Reader) (*core.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	br := bufio.NewReader(r)
	header, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !IsPDF(header) {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, name)
	}

	if err := p.writeTemp(br); err != nil {
		return nil, err
	}

	pages, err := p.extract(p.tempPath)
	if err != nil {
		p.logger.Warn("failed to extract pages", "file", name, "err", err)
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, name)
	}

	document := &core.Document{
		ID:         uuid.NewString(),
		Name:       name,
		Pages:      len(pages),
		UploadedAt: time.Now().UTC(),
	}

	chunks, err := ChunkPages(document.ID, pages, p.splitter)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, name)
	}
	document.Chunks = len(chunks)

	index, err := p.indexer.Build(ctx, document, chunks)
	if err != nil {
		return nil, err
	}

	if previous := p.holder.Swap(index); previous != nil {
		p.logger.Debug("replaced index", "previous", previous.Document().ID)
	}
	p.logger.Info("indexed document", "file", name, "document", document.ID, "pages", document.Pages, "chunks", document.Chunks)
	return document, nil
}

// IngestFile ingests the PDF at path under its base name.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Ingest(ctx, filepath.Base(path), f)
}

// Release releases resources including the worker pool of an owned indexer.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.ownsIndexer && p.indexer != nil {
		p.indexer.Release()
	}
}

// writeTemp overwrites the temporary file with r.
func (p *Pipeline) writeTemp(r io.Reader) error {
	if dir := filepath.Dir(p.tempPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(p.tempPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
