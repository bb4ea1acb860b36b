package ingestion

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/core"
	"github.com/poiesic/pdfchat/retrieval"
)

const (
	// DefaultBatchSize is the number of chunks sent per embedding call.
	DefaultBatchSize = 32
	// DefaultMaxAttempts disables retries.
	DefaultMaxAttempts = 1
	// DefaultRetryBaseDelay is the first backoff delay when retries are enabled.
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// Indexer embeds chunks concurrently and builds similarity indexes from them.
type Indexer struct {
	pool      *ants.Pool
	batch     *batchEmbedder
	batchSize int
	progress  io.Writer
	logger    *slog.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) IndexerOption {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		ix.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks go into one embedding call.
// Default is DefaultBatchSize.
func WithBatchSize(size int) IndexerOption {
	return func(ix *Indexer) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		ix.batchSize = size
		return nil
	}
}

// WithRetry sets the attempt budget and base backoff delay for each batch.
// Default is a single attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) IndexerOption {
	return func(ix *Indexer) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		ix.batch.retry.maxAttempts = maxAttempts
		ix.batch.retry.baseDelay = baseDelay
		return nil
	}
}

// WithProgress reports embedding progress to w.
func WithProgress(w io.Writer) IndexerOption {
	return func(ix *Indexer) error {
		ix.progress = w
		return nil
	}
}

// WithIndexerLogger sets a custom logger.
// Default is slog.Default().
func WithIndexerLogger(logger *slog.Logger) IndexerOption {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger.With("component", "indexer")
		return nil
	}
}

// NewIndexer creates an indexer backed by embedder.
func NewIndexer(embedder ai.Embedder, opts ...IndexerOption) (*Indexer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		pool: pool,
		batch: &batchEmbedder{
			embedder: embedder,
			retry: retryPolicy{
				maxAttempts: DefaultMaxAttempts,
				baseDelay:   DefaultRetryBaseDelay,
			},
		},
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "indexer"),
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			ix.Release()
			return nil, err
		}
	}
	ix.batch.retry.logger = ix.logger

	return ix, nil
}

// Embed assigns a normalized vector to every chunk. Batches run concurrently
// on the worker pool; the first failure cancels the remaining batches.
func (ix *Indexer) Embed(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tracker *ProgressTracker
	if ix.progress != nil {
		tracker = NewProgressTracker(ix.progress, len(chunks), ix.batchSize)
		tracker.Start()
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for _, batch := range batches(chunks, ix.batchSize) {
		if ctx.Err() != nil {
			break
		}
		batch := batch // per-iteration copy; go.mod targets go 1.21 loop semantics
		wg.Add(1)
		err := ix.pool.Submit(func() {
			defer wg.Done()
			if err := ix.batch.process(ctx, batch); err != nil {
				fail(err)
				return
			}
			if tracker != nil {
				tracker.Increment(len(batch))
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		ix.logger.Error("error embedding chunks", "chunks", len(chunks), "err", firstErr)
		return firstErr
	}
	// The caller's context may have ended without any batch failing.
	if err := ctx.Err(); err != nil {
		return err
	}

	if tracker != nil {
		tracker.Finish()
	}
	return nil
}

// Build embeds chunks and returns a fresh index over them.
// Nothing is returned unless every chunk was embedded.
func (ix *Indexer) Build(ctx context.Context, document *core.Document, chunks []*core.Chunk) (*retrieval.MemoryIndex, error) {
	start := time.Now()
	if err := ix.Embed(ctx, chunks); err != nil {
		return nil, err
	}

	index, err := retrieval.NewMemoryIndex(document, chunks)
	if err != nil {
		return nil, err
	}
	ix.logger.Debug("built index", "document", document.ID, "chunks", len(chunks), "elapsed", time.Since(start))
	return index, nil
}

// Release releases the worker pool.
// The indexer should not be used after calling Release.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}
