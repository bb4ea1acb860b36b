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

// Package ai provides abstractions for the model services used by pdfchat.
//
// Two services are needed: an Embedder that turns chunk and query text into
// vectors, and a ChatModel that rewrites questions and writes answers. A
// Provider bundles both. The embedder is configured once per process; chat
// models are created per API key because the key is supplied by the user on
// every request rather than by the server environment.
//
// # Credential Gate
//
// RequireAPIKey is the single check applied before any work is done on behalf
// of a user. A blank key yields ErrMissingAPIKey and callers show
// MissingAPIKeyWarning. Nothing else about the key is validated locally.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs (Groq, Ollama, vLLM)
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inspect call counts and recorded messages.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	model, err := provider.ChatModel(apiKey)
//	answer, err := model.Generate(ctx, messages)
package ai
