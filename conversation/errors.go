package conversation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrChatModelRequired is returned when a chat model is not provided.
	ErrChatModelRequired = errors.New("chat model required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrSessionRepositoryRequired is returned when a session repository is not provided.
	ErrSessionRepositoryRequired = errors.New("session repository required")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrUpstream wraps failures of the hosted chat or embedding model.
	ErrUpstream = errors.New("upstream model call failed")

	// ErrEmptyAnswer is returned when the model produced no answer text.
	ErrEmptyAnswer = errors.New("model returned an empty answer")
)

// upstreamError marks err from step as an ErrUpstream failure. When the
// caller's ctx has ended, err is returned as-is so that cancellation and
// deadlines are reported the same way whichever step observed them.
func upstreamError(ctx context.Context, step string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, step, err)
}
