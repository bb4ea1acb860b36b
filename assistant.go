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

package pdfchat

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/ai/openai"
	"github.com/poiesic/pdfchat/conversation"
	"github.com/poiesic/pdfchat/core"
	"github.com/poiesic/pdfchat/ingestion"
	"github.com/poiesic/pdfchat/retrieval"
	"github.com/poiesic/pdfchat/storage"
	"github.com/poiesic/pdfchat/storage/badger"
)

// Assistant answers questions about one uploaded PDF across named sessions.
// Every entry point runs the credential gate before doing any work.
type Assistant struct {
	provider     ai.Provider
	ownsProvider bool
	sessions     storage.SessionRepository
	ownsSessions bool
	holder       *retrieval.Holder
	indexer      *ingestion.Indexer
	pipeline     *ingestion.Pipeline
	retriever    *retrieval.Retriever
	monitor      conversation.Monitor
	logger       *slog.Logger
}

// Option configures an Assistant.
type Option func(*assistantOptions) error

type assistantOptions struct {
	aiConfig      *ai.Config
	provider      ai.Provider
	sessions      storage.SessionRepository
	dataDir       string
	pipelineOpts  []ingestion.Option
	indexerOpts   []ingestion.IndexerOption
	retrieverOpts []retrieval.Option
	monitor       conversation.Monitor
	logger        *slog.Logger
}

// WithAIConfig sets the configuration of the default OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) Option {
	return func(o *assistantOptions) error {
		o.aiConfig = config
		return nil
	}
}

// WithProvider supplies the AI provider. The caller keeps ownership.
func WithProvider(provider ai.Provider) Option {
	return func(o *assistantOptions) error {
		o.provider = provider
		return nil
	}
}

// WithSessionRepository supplies the session store. The caller keeps ownership.
func WithSessionRepository(sessions storage.SessionRepository) Option {
	return func(o *assistantOptions) error {
		o.sessions = sessions
		return nil
	}
}

// WithDataDir persists sessions in a Badger directory instead of memory.
func WithDataDir(dataDir string) Option {
	return func(o *assistantOptions) error {
		o.dataDir = dataDir
		return nil
	}
}

// WithPipelineOptions passes options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) Option {
	return func(o *assistantOptions) error {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
		return nil
	}
}

// WithIndexerOptions passes options to the embedding indexer.
func WithIndexerOptions(opts ...ingestion.IndexerOption) Option {
	return func(o *assistantOptions) error {
		o.indexerOpts = append(o.indexerOpts, opts...)
		return nil
	}
}

// WithRetrieverOptions passes options to the retriever.
func WithRetrieverOptions(opts ...retrieval.Option) Option {
	return func(o *assistantOptions) error {
		o.retrieverOpts = append(o.retrieverOpts, opts...)
		return nil
	}
}

// WithMonitor sets the default monitor for Ask.
func WithMonitor(monitor conversation.Monitor) Option {
	return func(o *assistantOptions) error {
		o.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *assistantOptions) error {
		o.logger = logger
		return nil
	}
}

// NewAssistant wires the provider, session store, index holder, ingestion
// pipeline and retriever together.
func NewAssistant(opts ...Option) (*Assistant, error) {
	options := &assistantOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	a := &Assistant{
		holder:  retrieval.NewHolder(),
		monitor: options.monitor,
		logger:  options.logger.With("component", "assistant"),
	}

	if options.provider != nil {
		a.provider = options.provider
	} else {
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
		a.provider = provider
		a.ownsProvider = true
	}

	if options.sessions != nil {
		a.sessions = options.sessions
	} else {
		sessions, err := badger.OpenSessionStore(options.dataDir)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.sessions = sessions
		a.ownsSessions = true
	}

	indexerOpts := append([]ingestion.IndexerOption{ingestion.WithIndexerLogger(options.logger)}, options.indexerOpts...)
	indexer, err := ingestion.NewIndexer(a.provider.Embedder(), indexerOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.indexer = indexer

	pipelineOpts := append([]ingestion.Option{ingestion.WithLogger(options.logger), ingestion.WithIndexer(indexer)}, options.pipelineOpts...)
	pipeline, err := ingestion.NewPipeline(a.provider.Embedder(), a.holder, pipelineOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = pipeline

	retrieverOpts := append([]retrieval.Option{retrieval.WithLogger(options.logger)}, options.retrieverOpts...)
	retriever, err := retrieval.NewRetriever(a.holder, a.provider.Embedder(), retrieverOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.retriever = retriever

	return a, nil
}

// Upload replaces the active document with the PDF read from r.
func (a *Assistant) Upload(ctx context.Context, apiKey, name string, r io.Reader) (*core.Document, error) {
	if err := ai.RequireAPIKey(apiKey); err != nil {
		return nil, err
	}
	return a.pipeline.Ingest(ctx, name, r)
}

// UploadFile replaces the active document with the PDF at path.
func (a *Assistant) UploadFile(ctx context.Context, apiKey, path string) (*core.Document, error) {
	if err := ai.RequireAPIKey(apiKey); err != nil {
		return nil, err
	}
	return a.pipeline.IngestFile(ctx, path)
}

// Ask answers question in the named session. An empty sessionID selects
// core.DefaultSessionID.
func (a *Assistant) Ask(ctx context.Context, apiKey, sessionID, question string) (*conversation.Response, error) {
	return a.AskWithMonitor(ctx, apiKey, sessionID, question, a.monitor)
}

// AskWithMonitor is Ask with a monitor observing each step.
func (a *Assistant) AskWithMonitor(ctx context.Context, apiKey, sessionID, question string, monitor conversation.Monitor) (*conversation.Response, error) {
	if err := ai.RequireAPIKey(apiKey); err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = core.DefaultSessionID
	}

	model, err := a.provider.ChatModel(apiKey)
	if err != nil {
		return nil, err
	}

	chain, err := conversation.NewChain(model, a.retriever, a.sessions,
		conversation.WithLogger(a.logger),
		conversation.WithMonitor(monitor),
	)
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, sessionID, question)
}

// History returns the turns of one session.
func (a *Assistant) History(ctx context.Context, sessionID string) ([]core.Turn, error) {
	return a.sessions.GetTurns(ctx, sessionID)
}

// Sessions returns the whole session store.
func (a *Assistant) Sessions(ctx context.Context) ([]*core.Session, error) {
	return a.sessions.ListSessions(ctx)
}

// Document describes the active document, or nil before the first upload.
func (a *Assistant) Document() *core.Document {
	return a.holder.Document()
}

// Close releases the worker pool and, when owned, the session store and provider.
func (a *Assistant) Close() error {
	if a.pipeline != nil {
		a.pipeline.Release()
	}
	if a.indexer != nil {
		a.indexer.Release()
	}

	var firstErr error
	if a.ownsSessions && a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.logger.Error("error closing session store", "err", err)
			firstErr = err
		}
	}
	if a.ownsProvider && a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
