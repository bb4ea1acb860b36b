package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnMUS(t *testing.T) {
	turn := Turn{
		Seq:       42,
		Speaker:   SpeakerAssistant,
		Text:      "Les tomates aiment le soleil ☀",
		Timestamp: time.Date(2025, 3, 1, 12, 0, 1, 123456789, time.FixedZone("CET", 3600)),
	}

	bs := make([]byte, TurnMUS.Size(turn))
	n := TurnMUS.Marshal(turn, bs)
	assert.Equal(t, len(bs), n)

	decoded, n, err := TurnMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), n)
	assert.Equal(t, turn.Seq, decoded.Seq)
	assert.Equal(t, turn.Speaker, decoded.Speaker)
	assert.Equal(t, turn.Text, decoded.Text)
	assert.True(t, turn.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, time.UTC, decoded.Timestamp.Location())

	skipped, err := TurnMUS.Skip(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), skipped)
}

func TestTimeMUS_ZeroTime(t *testing.T) {
	var zero time.Time
	bs := make([]byte, TimeMUS.Size(zero))
	TimeMUS.Marshal(zero, bs)

	decoded, _, err := TimeMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.True(t, decoded.IsZero())
}

func TestSpeakerMUS_RejectsUnknown(t *testing.T) {
	bs := make([]byte, SpeakerMUS.Size(Speaker(7)))
	SpeakerMUS.Marshal(Speaker(7), bs)

	_, _, err := SpeakerMUS.Unmarshal(bs)
	assert.ErrorIs(t, err, ErrInvalidSpeaker)
}

func TestSessionMUS(t *testing.T) {
	session := Session{
		ID:        "default_session",
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Turns:     []Turn{UserTurn("not encoded")},
	}

	bs := make([]byte, SessionMUS.Size(session))
	SessionMUS.Marshal(session, bs)

	decoded, n, err := SessionMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), n)
	assert.Equal(t, session.ID, decoded.ID)
	assert.True(t, session.CreatedAt.Equal(decoded.CreatedAt))
	assert.Nil(t, decoded.Turns)

	_, _, err = SessionMUS.Unmarshal(bs[:len(bs)-1])
	assert.Error(t, err)
}
