package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DefaultSessionID is the session used when a caller does not name one.
const DefaultSessionID = "default_session"

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the identifier of a chunk from its document, page and ordinal.
func ChunkID(documentID string, page, ordinal int) ID {
	return IDFromContent(documentID + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(ordinal))
}

// Speaker identifies who produced a turn.
type Speaker int

const (
	// SpeakerUser is the person asking questions.
	SpeakerUser Speaker = iota + 1
	// SpeakerAssistant is the model answering them.
	SpeakerAssistant
)

// String returns the lowercase role name used on the wire.
func (s Speaker) String() string {
	switch s {
	case SpeakerUser:
		return "user"
	case SpeakerAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// ParseSpeaker is the inverse of Speaker.String.
func ParseSpeaker(s string) (Speaker, error) {
	switch s {
	case "user", "human":
		return SpeakerUser, nil
	case "assistant", "ai":
		return SpeakerAssistant, nil
	default:
		return 0, ErrInvalidSpeaker
	}
}

// MarshalText encodes the speaker as its role name.
func (s Speaker) MarshalText() ([]byte, error) {
	if err := ValidateSpeaker(s); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a role name produced by MarshalText.
func (s *Speaker) UnmarshalText(text []byte) error {
	parsed, err := ParseSpeaker(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Turn is one message in a session's history.
// Seq and Timestamp are assigned by the session store on append.
type Turn struct {
	Seq       uint64    `json:"seq"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// UserTurn builds an unsaved user turn.
func UserTurn(text string) Turn {
	return Turn{Speaker: SpeakerUser, Text: text}
}

// AssistantTurn builds an unsaved assistant turn.
func AssistantTurn(text string) Turn {
	return Turn{Speaker: SpeakerAssistant, Text: text}
}

// Session is a named conversation and its ordered turns.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Turns     []Turn    `json:"turns"`
}

// Page is the extracted text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Chunk is a bounded span of document text that gets embedded and indexed.
type Chunk struct {
	Id         ID
	DocumentID string
	Page       int
	Ordinal    int // position of the chunk within its page
	Text       string
	Vector     []float32 // populated by the indexer
}

// Document describes the currently active upload.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SearchResult is a chunk returned by similarity search along with its score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
