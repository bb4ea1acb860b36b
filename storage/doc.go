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

// Package storage provides the storage abstraction layer for pdfchat.
//
// This package defines the session repository interface that decouples the
// conversation history store from the conversational chain. The only backend
// today is BadgerDB (package storage/badger), used in-memory for the process
// lifetime by default or on disk when a data directory is configured.
//
// # Constructor Return Type Pattern
//
// Public constructors return the interface to keep callers off backend
// specifics:
//
//	repo, err := badger.OpenSessionStore(dataDir)  // returns storage.SessionRepository
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Data Model
//
// A session is a header record (ID, creation time) plus an append-only list of
// turns. Each turn is stored under its own key ordered by (session, sequence),
// so reading a session's turns is a single prefix scan in chronological order.
//
// # Usage
//
//	repo, err := badger.OpenSessionStore("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	session, err := repo.GetOrCreateSession(ctx, core.DefaultSessionID)
//	stored, err := repo.AppendTurns(ctx, session.ID,
//	    core.UserTurn("What is this document about?"),
//	    core.AssistantTurn("It describes tomato care."))
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
