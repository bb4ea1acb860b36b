package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/core"
)

// batchEmbedder embeds one batch of chunks in place.
type batchEmbedder struct {
	embedder ai.Embedder
	retry    retryPolicy
}

// process embeds the batch and assigns normalized vectors to the chunks.
func (b *batchEmbedder) process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	attempts := 0
	err := b.retry.do(ctx, func(attempt int) error {
		attempts = attempt
		var err error
		vectors, err = b.embedder.EmbedTexts(ctx, texts)
		return err
	})
	switch {
	case err == nil:
	case ctx.Err() != nil, errors.Is(err, ErrInvalidMaxAttempts):
		return err
	default:
		return fmt.Errorf("%w: embedding %d chunks failed after %d attempts: %w", ErrUpstream, len(chunks), attempts, err)
	}

	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(chunks), len(vectors))
	}

	for i := range chunks {
		chunks[i].Vector = NormalizeVector(vectors[i])
	}
	return nil
}

// batches splits chunks into consecutive slices of at most size elements.
func batches(chunks []*core.Chunk, size int) [][]*core.Chunk {
	out := make([][]*core.Chunk, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		out = append(out, chunks[start:min(start+size, len(chunks))])
	}
	return out
}
