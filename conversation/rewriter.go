package conversation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/core"
)

// Rewriter turns a follow-up question into one that stands on its own.
type Rewriter struct {
	model  ai.ChatModel
	logger *slog.Logger
}

// NewRewriter creates a rewriter backed by model.
func NewRewriter(model ai.ChatModel, logger *slog.Logger) (*Rewriter, error) {
	if model == nil {
		return nil, ErrChatModelRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{model: model, logger: logger}, nil
}

// Rewrite returns a standalone form of question. Without history the
// question is returned unchanged and the model is not called. An empty
// model response falls back to the original question.
func (r *Rewriter) Rewrite(ctx context.Context, history []core.Turn, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	standalone, err := r.model.Generate(ctx, buildMessages(ContextualizePrompt, history, question))
	if err != nil {
		return "", upstreamError(ctx, "rewrite", err)
	}

	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		r.logger.Warn("empty rewrite, using original question")
		return question, nil
	}

	r.logger.Debug("rewrote question", "original", question, "standalone", standalone)
	return standalone, nil
}
