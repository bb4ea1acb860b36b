package retrieval

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/poiesic/pdfchat/core"
)

// Index is a similarity index over the chunks of one document.
// Implementations must be safe for concurrent searches.
type Index interface {
	// Search returns up to k chunks most similar to vector, highest score first.
	Search(ctx context.Context, vector []float32, k int) ([]*core.SearchResult, error)

	// Document describes the document the index was built from.
	Document() *core.Document

	// Len returns the number of indexed chunks.
	Len() int
}

// MemoryIndex is an exhaustive cosine-similarity index held in memory.
// It is immutable once built.
type MemoryIndex struct {
	document  *core.Document
	chunks    []*core.Chunk
	norms     []float32
	dimension int
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex builds an index over chunks. Every chunk must carry a vector
// and all vectors must share one dimension.
func NewMemoryIndex(document *core.Document, chunks []*core.Chunk) (*MemoryIndex, error) {
	if document == nil {
		document = &core.Document{}
	}
	idx := &MemoryIndex{
		document: document,
		chunks:   slices.Clone(chunks),
		norms:    make([]float32, len(chunks)),
	}

	for i, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		if len(chunk.Vector) == 0 {
			return nil, fmt.Errorf("%w: chunk %d", ErrMissingVector, chunk.Id)
		}
		if i == 0 {
			idx.dimension = len(chunk.Vector)
		} else if len(chunk.Vector) != idx.dimension {
			return nil, fmt.Errorf("%w: chunk %d has %d, want %d", ErrDimensionMismatch, chunk.Id, len(chunk.Vector), idx.dimension)
		}
		idx.norms[i] = norm(chunk.Vector)
	}

	return idx, nil
}

// Document describes the indexed document.
func (idx *MemoryIndex) Document() *core.Document {
	return idx.document
}

// Len returns the number of indexed chunks.
func (idx *MemoryIndex) Len() int {
	return len(idx.chunks)
}

// Search scores every chunk against vector. Ties keep document order.
func (idx *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]*core.SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidTopK
	}
	if len(idx.chunks) == 0 {
		return []*core.SearchResult{}, nil
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vector), idx.dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryNorm := norm(vector)
	results := make([]*core.SearchResult, len(idx.chunks))
	for i, chunk := range idx.chunks {
		results[i] = &core.SearchResult{
			Chunk: chunk,
			Score: cosine(vector, chunk.Vector, queryNorm, idx.norms[i]),
		}
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

// cosine returns 0 when either vector has zero length.
func cosine(a, b []float32, normA, normB float32) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (normA * normB)
}
