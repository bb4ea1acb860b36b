package retrieval

import (
	"context"
	"log/slog"

	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/core"
)

// DefaultTopK is the number of chunks returned per query.
const DefaultTopK = 4

// Retriever embeds a query and searches the active index.
type Retriever struct {
	holder   *Holder
	embedder ai.Embedder
	topK     int
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retriever")
		return nil
	}
}

// WithTopK sets how many chunks a query returns.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k <= 0 {
			return ErrInvalidTopK
		}
		r.topK = k
		return nil
	}
}

// NewRetriever creates a retriever over the holder's active index.
func NewRetriever(holder *Holder, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if holder == nil {
		return nil, ErrHolderRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		holder:   holder,
		embedder: embedder,
		topK:     DefaultTopK,
		logger:   slog.Default().With("component", "retriever"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// TopK returns the configured result count.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns the chunks most similar to query.
// ErrNoIndex is returned before any embedding call when nothing is indexed.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]*core.SearchResult, error) {
	index, err := r.holder.Current()
	if err != nil {
		return nil, err
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	results, err := index.Search(ctx, vector, r.topK)
	if err != nil {
		r.logger.Error("error searching index", "err", err)
		return nil, err
	}

	r.logger.Debug("retrieved chunks", "document", index.Document().ID, "hits", len(results))
	return results, nil
}
