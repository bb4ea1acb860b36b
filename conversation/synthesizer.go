package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/core"
)

// Synthesizer answers a question from retrieved chunks.
type Synthesizer struct {
	model  ai.ChatModel
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer backed by model.
func NewSynthesizer(model ai.ChatModel, logger *slog.Logger) (*Synthesizer, error) {
	if model == nil {
		return nil, ErrChatModelRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{model: model, logger: logger}, nil
}

// SystemPrompt renders the answer prompt with the chunk texts stuffed in.
func SystemPrompt(results []*core.SearchResult) (string, error) {
	texts := make([]string, 0, len(results))
	for _, result := range results {
		texts = append(texts, result.Chunk.Text)
	}
	return answerTemplate.Format(map[string]any{
		"context": strings.Join(texts, ContextSeparator),
	})
}

// Answer calls the model with the stuffed system prompt, the history and the
// original question. The model's answer is returned as-is, apart from trimming.
func (s *Synthesizer) Answer(ctx context.Context, results []*core.SearchResult, history []core.Turn, question string) (string, error) {
	system, err := SystemPrompt(results)
	if err != nil {
		return "", fmt.Errorf("rendering answer prompt: %w", err)
	}

	answer, err := s.model.Generate(ctx, buildMessages(system, history, question))
	if err != nil {
		return "", upstreamError(ctx, "answer", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: %w", ErrUpstream, ErrEmptyAnswer)
	}

	s.logger.Debug("synthesized answer", "chunks", len(results), "length", len(answer))
	return answer, nil
}
