package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/core"
	"github.com/poiesic/pdfchat/retrieval"
	"github.com/poiesic/pdfchat/storage"
)

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]*core.SearchResult, error)
}

// Response is the result of one chain invocation.
type Response struct {
	SessionID          string
	Input              string
	StandaloneQuestion string
	Answer             string
	Context            []*core.SearchResult
	// History is the session history after the new turns were appended.
	History []core.Turn
}

// Chain runs history-aware retrieval and answering for one chat model.
type Chain struct {
	rewriter    *Rewriter
	synthesizer *Synthesizer
	retriever   Retriever
	sessions    storage.SessionRepository
	monitor     Monitor
	logger      *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "chain")
		return nil
	}
}

// WithMonitor sets the monitor that observes each invocation.
func WithMonitor(monitor Monitor) Option {
	return func(c *Chain) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		c.monitor = monitor
		return nil
	}
}

// NewChain creates a conversational retrieval chain.
func NewChain(model ai.ChatModel, retriever Retriever, sessions storage.SessionRepository, opts ...Option) (*Chain, error) {
	if model == nil {
		return nil, ErrChatModelRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if sessions == nil {
		return nil, ErrSessionRepositoryRequired
	}

	c := &Chain{
		retriever: retriever,
		sessions:  sessions,
		monitor:   &noopMonitor{},
		logger:    slog.Default().With("component", "chain"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	// Built after options so they share the final logger.
	var err error
	if c.rewriter, err = NewRewriter(model, c.logger); err != nil {
		return nil, err
	}
	if c.synthesizer, err = NewSynthesizer(model, c.logger); err != nil {
		return nil, err
	}
	return c, nil
}

// Invoke answers question within the session's conversation. The question
// and answer are appended to the session only when an answer was produced;
// on any failure the history is unchanged.
func (c *Chain) Invoke(ctx context.Context, sessionID, question string) (*Response, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	session, err := c.sessions.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := session.Turns
	c.monitor.Start(sessionID, question, history)

	standalone, err := c.rewriter.Rewrite(ctx, history, question)
	if err != nil {
		c.logger.Error("error rewriting question", "session", sessionID, "err", err)
		return nil, err
	}
	c.monitor.Rewritten(standalone)

	results, err := c.retriever.Retrieve(ctx, standalone)
	if err != nil {
		if errors.Is(err, retrieval.ErrNoIndex) {
			return nil, err
		}
		c.logger.Error("error retrieving context", "session", sessionID, "err", err)
		return nil, upstreamError(ctx, "retrieve", err)
	}
	c.monitor.Retrieved(results)

	answer, err := c.synthesizer.Answer(ctx, results, history, question)
	if err != nil {
		c.logger.Error("error answering question", "session", sessionID, "err", err)
		return nil, err
	}
	c.monitor.Answered(answer)

	stored, err := c.sessions.AppendTurns(ctx, sessionID, core.UserTurn(question), core.AssistantTurn(answer))
	if err != nil {
		return nil, err
	}

	updated := make([]core.Turn, 0, len(history)+len(stored))
	updated = append(updated, history...)
	updated = append(updated, stored...)

	return &Response{
		SessionID:          sessionID,
		Input:              question,
		StandaloneQuestion: standalone,
		Answer:             answer,
		Context:            results,
		History:            updated,
	}, nil
}
