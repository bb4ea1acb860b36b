package ai

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel produces a single completion for an ordered list of messages.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Generate sends messages to the model and returns the text of the first choice.
	// An empty string is returned if the model produced no choices.
	Generate(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
//
// The embedder is configured once per process. Chat models are bound to a
// caller-supplied API key, so a new key yields a new model.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ChatModel returns a chat model authenticated with apiKey.
	// Returns ErrMissingAPIKey if apiKey is blank.
	ChatModel(apiKey string) (ChatModel, error)

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
