package retrieval

import "errors"

var (
	// ErrNoIndex is returned when a search is attempted before any document was indexed.
	ErrNoIndex = errors.New("no document has been indexed")

	// ErrHolderRequired is returned when a retriever is built without an index holder.
	ErrHolderRequired = errors.New("index holder required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidTopK is returned for a non-positive result count.
	ErrInvalidTopK = errors.New("top k must be positive")

	// ErrMissingVector is returned when a chunk without an embedding is indexed.
	ErrMissingVector = errors.New("chunk has no vector")

	// ErrDimensionMismatch is returned when vectors of different lengths meet.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
