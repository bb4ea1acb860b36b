package storage

import (
	"testing"
	"time"

	"github.com/poiesic/pdfchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSerialization(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &core.Session{
		ID:        "default_session",
		CreatedAt: created,
		Turns:     []core.Turn{core.UserTurn("dropped")},
	}

	data, err := MarshalSession(session)
	require.NoError(t, err)

	decoded, err := UnmarshalSession(data)
	require.NoError(t, err)
	assert.Equal(t, "default_session", decoded.ID)
	assert.True(t, created.Equal(decoded.CreatedAt))
	assert.Empty(t, decoded.Turns, "turns are stored under their own keys")
}

func TestTurnSerialization(t *testing.T) {
	turn := &core.Turn{
		Seq:       7,
		Speaker:   core.SpeakerAssistant,
		Text:      "Water them every morning.",
		Timestamp: time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC),
	}

	data, err := MarshalTurn(turn)
	require.NoError(t, err)
	assert.Len(t, data, core.TurnMUS.Size(*turn))

	decoded, err := UnmarshalTurn(data)
	require.NoError(t, err)
	assert.Equal(t, turn.Seq, decoded.Seq)
	assert.Equal(t, turn.Speaker, decoded.Speaker)
	assert.Equal(t, turn.Text, decoded.Text)
	assert.True(t, turn.Timestamp.Equal(decoded.Timestamp))
}

func TestSerializationErrors(t *testing.T) {
	t.Run("invalid speaker does not marshal", func(t *testing.T) {
		_, err := MarshalTurn(&core.Turn{Speaker: core.Speaker(9), Text: "x"})
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("empty turn", func(t *testing.T) {
		_, err := UnmarshalTurn(nil)
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("truncated turn", func(t *testing.T) {
		data, err := MarshalTurn(&core.Turn{Seq: 1, Speaker: core.SpeakerUser, Text: "hello there"})
		require.NoError(t, err)
		_, err = UnmarshalTurn(data[:len(data)-4])
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		data, err := MarshalTurn(&core.Turn{Seq: 1, Speaker: core.SpeakerUser, Text: "hi"})
		require.NoError(t, err)
		_, err = UnmarshalTurn(append(data, 0x00))
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("invalid session id does not marshal", func(t *testing.T) {
		_, err := MarshalSession(&core.Session{ID: ""})
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("garbage session", func(t *testing.T) {
		_, err := UnmarshalSession([]byte{0x01, 0x02})
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("unknown speaker value", func(t *testing.T) {
		turn := core.Turn{Seq: 1, Speaker: core.Speaker(9), Text: "hi"}
		data := make([]byte, core.TurnMUS.Size(turn))
		core.TurnMUS.Marshal(turn, data)

		_, err := UnmarshalTurn(data)
		assert.ErrorIs(t, err, ErrSerializationFailed)
		assert.ErrorContains(t, err, core.ErrInvalidSpeaker.Error())
	})
}
