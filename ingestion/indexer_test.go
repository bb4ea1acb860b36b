package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/pdfchat/ai/mock"
	"github.com/poiesic/pdfchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunks(n int) []*core.Chunk {
	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		chunks[i] = &core.Chunk{
			Id:         core.ChunkID("doc", 1, i),
			DocumentID: "doc",
			Page:       1,
			Ordinal:    i,
			Text:       fmt.Sprintf("chunk number %d about topic%d", i, i),
		}
	}
	return chunks
}

func TestNewIndexer(t *testing.T) {
	_, err := NewIndexer(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewIndexer(mock.NewMockEmbedder(), WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = NewIndexer(mock.NewMockEmbedder(), WithRetry(0, time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	ix, err := NewIndexer(mock.NewMockEmbedder(), WithPoolSize(0))
	require.NoError(t, err)
	ix.Release()
}

func TestIndexer_EmbedKeepsOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	ix, err := NewIndexer(embedder, WithPoolSize(3), WithBatchSize(2))
	require.NoError(t, err)
	defer ix.Release()

	chunks := makeChunks(7)
	require.NoError(t, ix.Embed(context.Background(), chunks))

	for _, chunk := range chunks {
		want := NormalizeVector(mock.BagOfWords(chunk.Text, mock.DefaultDimension))
		assert.InDeltaSlice(t, want, chunk.Vector, 1e-6, "chunk %d", chunk.Ordinal)
	}
	assert.Equal(t, 4, embedder.CallCount(), "7 chunks in batches of 2")
	assert.Equal(t, 7, embedder.EmbeddedCount())
}

func TestIndexer_EmbedNormalizes(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}
	ix, err := NewIndexer(embedder)
	require.NoError(t, err)
	defer ix.Release()

	chunks := makeChunks(2)
	require.NoError(t, ix.Embed(context.Background(), chunks))
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, chunks[0].Vector, 1e-6)
}

func TestIndexer_EmbedFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if slices.ContainsFunc(texts, func(s string) bool { return strings.Contains(s, "number 5 ") }) {
			return nil, errors.New("embedding service unavailable")
		}
		return make([][]float32, len(texts)), nil
	}
	ix, err := NewIndexer(embedder, WithBatchSize(2))
	require.NoError(t, err)
	defer ix.Release()

	chunks := makeChunks(8)
	index, err := ix.Build(context.Background(), &core.Document{ID: "doc"}, chunks)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorContains(t, err, "embedding service unavailable")
	assert.Nil(t, index)
}

func TestIndexer_CountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	ix, err := NewIndexer(embedder)
	require.NoError(t, err)
	defer ix.Release()

	err = ix.Embed(context.Background(), makeChunks(3))
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestIndexer_Retry(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("temporary error")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.BagOfWords(text, 8)
		}
		return out, nil
	}

	ix, err := NewIndexer(embedder, WithPoolSize(1), WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	defer ix.Release()

	chunks := makeChunks(3)
	require.NoError(t, ix.Embed(context.Background(), chunks))
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, chunks[0].Vector, 8)
}

func TestIndexer_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		return nil, errors.New("fail")
	}

	ix, err := NewIndexer(embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer ix.Release()

	assert.Error(t, ix.Embed(context.Background(), makeChunks(1)))
	assert.Equal(t, int32(1), calls.Load())
}

func TestIndexer_Progress(t *testing.T) {
	var buf bytes.Buffer
	ix, err := NewIndexer(mock.NewMockEmbedder(), WithBatchSize(2), WithProgress(&buf))
	require.NoError(t, err)
	defer ix.Release()

	require.NoError(t, ix.Embed(context.Background(), makeChunks(5)))
	assert.Contains(t, buf.String(), "5/5 chunks")
}

func TestIndexer_CancelledContext(t *testing.T) {
	ix, err := NewIndexer(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer ix.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = ix.Embed(ctx, makeChunks(4))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUpstream)
}

func TestIndexer_Build(t *testing.T) {
	ix, err := NewIndexer(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer ix.Release()

	doc := &core.Document{ID: "doc"}
	index, err := ix.Build(context.Background(), doc, makeChunks(6))
	require.NoError(t, err)
	assert.Equal(t, 6, index.Len())
	assert.Same(t, doc, index.Document())
}
