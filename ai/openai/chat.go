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

package openai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poiesic/pdfchat/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel implements ai.ChatModel using an OpenAI-compatible chat completion API.
type ChatModel struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

// newChatModel is an internal constructor that returns the concrete type.
// The caller is responsible for gating apiKey.
func newChatModel(config *ai.Config, apiKey string) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(apiKey),
		openai.WithModel(config.ChatModel),
		openai.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		client: client,
		model:  config.ChatModel,
		logger: slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChatModel creates a chat model authenticated with apiKey.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config, apiKey string) (ai.ChatModel, error) {
	if err := ai.RequireAPIKey(apiKey); err != nil {
		return nil, err
	}
	return newChatModel(config, apiKey)
}

// Generate sends messages to the model and returns the first choice's content.
func (m *ChatModel) Generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	m.logger.Debug("generating completion", "model", m.model, "messages", len(messages))

	response, err := m.client.GenerateContent(ctx, messages)
	if err != nil {
		m.logger.Error("failed to generate content", "model", m.model, "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		m.logger.Debug("no choices returned from model")
		return "", nil
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
