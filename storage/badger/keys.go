package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	sessionPrefix = "sess:"
	turnPrefix    = "sesturn:"
	turnSeq       = "sesturnseq"
)

// makeSessionKey generates a key for a session header by ID.
func makeSessionKey(id string) []byte {
	return append([]byte(sessionPrefix), id...)
}

// makeTurnPrefix generates the prefix shared by every turn of a session.
// Format: prefix + sessionID + 0x00
// Session IDs never contain NUL, so one session's prefix never matches another's.
func makeTurnPrefix(sessionID string) []byte {
	buf := make([]byte, 0, len(turnPrefix)+len(sessionID)+1)
	buf = append(buf, turnPrefix...)
	buf = append(buf, sessionID...)
	return append(buf, 0)
}

// makeTurnKey generates a composite key for one turn.
// Format: prefix + sessionID + 0x00 + seq
func makeTurnKey(sessionID string, seq uint64) []byte {
	prefix := makeTurnPrefix(sessionID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// sessionIDFromKey extracts the session ID from a session header key.
func sessionIDFromKey(key []byte) string {
	return string(key[len(sessionPrefix):])
}
