package badger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pdfchat/core"
	"github.com/poiesic/pdfchat/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
type SessionRepository struct {
	backend     *Backend
	seq         *badger.Sequence
	ownsBackend bool
	logger      *slog.Logger

	// writeMu keeps the turns of one append contiguous in sequence order.
	writeMu sync.Mutex
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository on an open backend.
// The caller keeps ownership of the backend.
func NewSessionRepository(backend *Backend) (*SessionRepository, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	seq, err := backend.GetSequence(turnSeq)
	if err != nil {
		return nil, err
	}

	return &SessionRepository{
		backend: backend,
		seq:     seq,
		logger:  slog.Default().With("component", "session-store"),
	}, nil
}

// OpenSessionStore opens a session store that owns its backend.
// An empty dataDir keeps everything in memory for the process lifetime.
func OpenSessionStore(dataDir string) (storage.SessionRepository, error) {
	backend, err := OpenBackend(dataDir, dataDir == "")
	if err != nil {
		return nil, err
	}

	repo, err := NewSessionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	repo.ownsBackend = true
	return repo, nil
}

// Close releases the turn sequence and, when owned, the backend.
func (r *SessionRepository) Close() error {
	if r.backend.IsClosed() {
		return nil
	}
	err := r.seq.Release()
	if r.ownsBackend {
		if closeErr := r.backend.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// GetOrCreateSession returns the session, creating an empty one on first reference.
func (r *SessionRepository) GetOrCreateSession(ctx context.Context, id string) (*core.Session, error) {
	if err := core.ValidateSessionID(id); err != nil {
		return nil, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	var session *core.Session
	err := r.backend.WithTransaction(ctx, func(tx *badger.Txn) error {
		var err error
		session, err = r.ensureSession(tx, id)
		if err != nil {
			return err
		}
		session.Turns, err = r.readTurns(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// AppendTurns appends turns to a session in one transaction.
func (r *SessionRepository) AppendTurns(ctx context.Context, id string, turns ...core.Turn) ([]core.Turn, error) {
	if err := core.ValidateSessionID(id); err != nil {
		return nil, err
	}
	for i := range turns {
		if err := core.ValidateTurn(&turns[i]); err != nil {
			return nil, err
		}
	}
	if len(turns) == 0 {
		return nil, nil
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	stored := make([]core.Turn, len(turns))
	copy(stored, turns)

	err := r.backend.WithTransaction(ctx, func(tx *badger.Txn) error {
		if _, err := r.ensureSession(tx, id); err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range stored {
			seq, err := r.nextSeq()
			if err != nil {
				return err
			}
			stored[i].Seq = seq
			if stored[i].Timestamp.IsZero() {
				stored[i].Timestamp = now
			}

			value, err := storage.MarshalTurn(&stored[i])
			if err != nil {
				return err
			}
			if err := tx.Set(makeTurnKey(id, seq), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("appended turns", "session", id, "count", len(stored))
	return stored, nil
}

// GetTurns returns the turns of an existing session.
func (r *SessionRepository) GetTurns(ctx context.Context, id string) ([]core.Turn, error) {
	if err := core.ValidateSessionID(id); err != nil {
		return nil, err
	}

	var turns []core.Turn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		session, err := r.readSession(tx, id)
		if err != nil {
			return err
		}
		if session == nil {
			return storage.ErrNotFound
		}
		turns, err = r.readTurns(tx, id)
		return err
	}, false)
	return turns, err
}

// ListSessions returns every session with its turns, ordered by session ID.
func (r *SessionRepository) ListSessions(ctx context.Context) ([]*core.Session, error) {
	var sessions []*core.Session
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			err := item.Value(func(val []byte) error {
				session, err := storage.UnmarshalSession(val)
				if err != nil {
					return err
				}
				if session.ID == "" {
					session.ID = sessionIDFromKey(item.Key())
				}
				sessions = append(sessions, session)
				return nil
			})
			if err != nil {
				return err
			}
		}

		// Turns are read after the session scan so only one iterator is open at a time.
		for _, session := range sessions {
			turns, err := r.readTurns(tx, session.ID)
			if err != nil {
				return err
			}
			session.Turns = turns
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Helper methods

// nextSeq returns the next turn sequence number.
func (r *SessionRepository) nextSeq() (uint64, error) {
	next, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		return r.seq.Next()
	}
	return next, nil
}

// ensureSession reads the session header, writing a new one if it is missing.
func (r *SessionRepository) ensureSession(tx *badger.Txn, id string) (*core.Session, error) {
	session, err := r.readSession(tx, id)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	session = &core.Session{ID: id, CreatedAt: time.Now().UTC()}
	value, err := storage.MarshalSession(session)
	if err != nil {
		return nil, err
	}
	if err := tx.Set(makeSessionKey(id), value); err != nil {
		return nil, err
	}
	r.logger.Debug("created session", "session", id)
	return session, nil
}

// readSession reads a session header from the transaction.
// Returns nil, nil if the session doesn't exist.
func (r *SessionRepository) readSession(tx *badger.Txn, id string) (*core.Session, error) {
	item, err := tx.Get(makeSessionKey(id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var session *core.Session
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		session, unmarshalErr = storage.UnmarshalSession(val)
		return unmarshalErr
	})
	return session, err
}

// readTurns reads a session's turns in sequence order.
func (r *SessionRepository) readTurns(tx *badger.Txn, id string) ([]core.Turn, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeTurnPrefix(id)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	turns := []core.Turn{}
	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			turn, err := storage.UnmarshalTurn(val)
			if err != nil {
				return err
			}
			turns = append(turns, *turn)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return turns, nil
}
