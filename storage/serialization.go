// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"

	"github.com/poiesic/pdfchat/core"
)

// MarshalSession serializes a session header. Turns are stored separately.
func MarshalSession(session *core.Session) ([]byte, error) {
	if err := core.ValidateSessionID(session.ID); err != nil {
		return nil, fmt.Errorf("%w: session: %v", ErrSerializationFailed, err)
	}
	buf := make([]byte, core.SessionMUS.Size(*session))
	core.SessionMUS.Marshal(*session, buf)
	return buf, nil
}

// UnmarshalSession deserializes a session header. The result has no turns.
func UnmarshalSession(data []byte) (*core.Session, error) {
	session, n, err := core.SessionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: session: %v", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: session: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return &session, nil
}

// MarshalTurn serializes a turn.
func MarshalTurn(turn *core.Turn) ([]byte, error) {
	if err := core.ValidateSpeaker(turn.Speaker); err != nil {
		return nil, fmt.Errorf("%w: turn %d: %v", ErrSerializationFailed, turn.Seq, err)
	}
	buf := make([]byte, core.TurnMUS.Size(*turn))
	core.TurnMUS.Marshal(*turn, buf)
	return buf, nil
}

// UnmarshalTurn deserializes a turn.
func UnmarshalTurn(data []byte) (*core.Turn, error) {
	turn, n, err := core.TurnMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: turn: %v", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: turn: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return &turn, nil
}
