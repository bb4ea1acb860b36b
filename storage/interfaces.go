package storage

import (
	"context"

	"github.com/poiesic/pdfchat/core"
)

// SessionRepository stores conversation sessions and their turn histories.
// Implementations must be thread-safe and support concurrent access.
type SessionRepository interface {
	// GetOrCreateSession returns the session with the given ID, creating an
	// empty one on first reference. The returned session carries its turns
	// in chronological order.
	GetOrCreateSession(ctx context.Context, id string) (*core.Session, error)

	// AppendTurns appends turns to the end of a session's history, creating
	// the session if needed. Seq is assigned from a monotonically increasing
	// sequence and Timestamp is set when zero. All turns are written in one
	// transaction; either all are stored or none are.
	// Returns the stored turns.
	AppendTurns(ctx context.Context, id string, turns ...core.Turn) ([]core.Turn, error)

	// GetTurns returns the turns of an existing session in chronological order.
	// Returns ErrNotFound if the session has never been referenced.
	GetTurns(ctx context.Context, id string) ([]core.Turn, error)

	// ListSessions returns every session with its turns, ordered by session ID.
	ListSessions(ctx context.Context) ([]*core.Session, error)

	// Close releases resources held by the repository.
	Close() error
}
