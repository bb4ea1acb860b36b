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
	"container/list"
	"crypto/sha256"
	"log/slog"
	"sync"

	"github.com/poiesic/pdfchat/ai"
)

// MaxCachedChatModels bounds the per-key chat model cache. The least
// recently used model is evicted first.
const MaxCachedChatModels = 16

type cachedModel struct {
	digest [sha256.Size]byte
	model  *ChatModel
}

// Provider implements ai.Provider using OpenAI-compatible services.
// It owns one embedder and caches chat models for the most recently used
// API keys.
type Provider struct {
	config   *ai.Config
	embedder *Embedder
	logger   *slog.Logger

	mu     sync.Mutex
	models map[[sha256.Size]byte]*list.Element
	recent *list.List
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create embedder (using internal constructor for concrete type)
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-provider"),
		models:   make(map[[sha256.Size]byte]*list.Element),
		recent:   list.New(),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ChatModel returns the cached chat model for apiKey, creating it on first use.
// Keys are held only as digests.
func (p *Provider) ChatModel(apiKey string) (ai.ChatModel, error) {
	if err := ai.RequireAPIKey(apiKey); err != nil {
		return nil, err
	}

	digest := sha256.Sum256([]byte(apiKey))

	p.mu.Lock()
	defer p.mu.Unlock()

	if elem, ok := p.models[digest]; ok {
		p.recent.MoveToFront(elem)
		return elem.Value.(*cachedModel).model, nil
	}

	model, err := newChatModel(p.config, apiKey)
	if err != nil {
		return nil, err
	}
	p.models[digest] = p.recent.PushFront(&cachedModel{digest: digest, model: model})
	for p.recent.Len() > MaxCachedChatModels {
		oldest := p.recent.Remove(p.recent.Back()).(*cachedModel)
		delete(p.models, oldest.digest)
	}
	p.logger.Debug("created chat model", "model", p.config.ChatModel, "cached", p.recent.Len())
	return model, nil
}

func (p *Provider) cachedModels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recent.Len()
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	p.mu.Lock()
	clear(p.models)
	p.recent.Init()
	p.mu.Unlock()
	return nil
}
