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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/pdfchat"
	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/config"
	"github.com/poiesic/pdfchat/conversation"
	"github.com/poiesic/pdfchat/core"
	"github.com/poiesic/pdfchat/ingestion"
	"github.com/poiesic/pdfchat/retrieval"
	"github.com/poiesic/pdfchat/server"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env is fine; the process environment is used as is.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pdfchat",
		Usage: "Ask questions about a PDF with conversational memory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "BadgerDB directory for session history (in-memory when empty)",
					},
					&cli.StringFlag{
						Name:  "temp-path",
						Usage: "File each upload is written to before extraction",
						Value: ingestion.DefaultTempPath,
					},
				}, modelFlags()...),
			},
			{
				Name:      "ask",
				Usage:     "Index a PDF and answer questions about it",
				ArgsUsage: "[question...]",
				Action:    askCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "PDF to index",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Session identifier",
						Value:   core.DefaultSessionID,
					},
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "Groq API key",
						EnvVars: []string{"GROQ_API_KEY"},
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "BadgerDB directory for session history (in-memory when empty)",
					},
					&cli.StringFlag{
						Name:  "temp-path",
						Usage: "File the PDF is copied to before extraction",
						Value: ingestion.DefaultTempPath,
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Print rewrite, retrieval and embedding progress to stderr",
					},
				}, modelFlags()...),
			},
		},
	}
}

// modelFlags returns fresh copies of the flags both commands share.
func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.StringFlag{
			Name:  "chat-host",
			Usage: "Chat completion service host URL",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum characters per chunk",
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Characters shared by adjacent chunks",
		},
		&cli.StringFlag{
			Name:  "splitter",
			Usage: "Chunking strategy (window, recursive)",
		},
		&cli.IntFlag{
			Name:  "top-k",
			Usage: "Number of chunks retrieved per question",
		},
	}
}

// loadConfig reads the --config file and applies any flags set on the command line.
func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrideString(c, "addr", &cfg.Server.Addr)
	overrideString(c, "data-dir", &cfg.Server.DataDir)
	overrideString(c, "temp-path", &cfg.Server.TempPath)
	overrideString(c, "embedding-host", &cfg.AI.EmbeddingHost)
	overrideString(c, "embedding-model", &cfg.AI.EmbeddingModel)
	overrideString(c, "chat-host", &cfg.AI.ChatHost)
	overrideString(c, "chat-model", &cfg.AI.ChatModel)
	overrideString(c, "splitter", &cfg.Chunker.Type)
	overrideInt(c, "chunk-size", &cfg.Chunker.Size)
	overrideInt(c, "chunk-overlap", &cfg.Chunker.Overlap)
	overrideInt(c, "top-k", &cfg.Retriever.TopK)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func overrideInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

// assistantOptions translates cfg into assistant options.
func assistantOptions(cfg *config.AppConfig) ([]pdfchat.Option, error) {
	splitter, err := ingestion.NewSplitter(cfg.Chunker.Type, cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	indexerOpts := []ingestion.IndexerOption{
		ingestion.WithBatchSize(cfg.Indexer.BatchSize),
		ingestion.WithRetry(cfg.Indexer.MaxAttempts, cfg.RetryDelay()),
	}
	if cfg.Indexer.PoolSize > 0 {
		indexerOpts = append(indexerOpts, ingestion.WithPoolSize(cfg.Indexer.PoolSize))
	}

	return []pdfchat.Option{
		pdfchat.WithAIConfig(cfg.ModelConfig()),
		pdfchat.WithDataDir(cfg.Server.DataDir),
		pdfchat.WithPipelineOptions(
			ingestion.WithTempPath(cfg.Server.TempPath),
			ingestion.WithSplitter(splitter),
		),
		pdfchat.WithIndexerOptions(indexerOpts...),
		pdfchat.WithRetrieverOptions(retrieval.WithTopK(cfg.Retriever.TopK)),
	}, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := assistantOptions(cfg)
	if err != nil {
		return err
	}

	assistant, err := pdfchat.NewAssistant(opts...)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	defer assistant.Close()

	srv, err := server.New(assistant, server.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	slog.Info("starting pdfchat",
		"addr", cfg.Server.Addr,
		"chat_model", cfg.AI.ChatModel,
		"embedding_model", cfg.AI.EmbeddingModel,
		"data_dir", cfg.Server.DataDir,
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func askCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiKey := c.String("api-key")
	if err := ai.RequireAPIKey(apiKey); err != nil {
		return cli.Exit(ai.MissingAPIKeyWarning, 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := assistantOptions(cfg)
	if err != nil {
		return err
	}

	var monitor conversation.Monitor
	if c.Bool("verbose") {
		monitor = conversation.NewWriterMonitor(os.Stderr)
		opts = append(opts,
			pdfchat.WithMonitor(monitor),
			pdfchat.WithIndexerOptions(ingestion.WithProgress(os.Stderr)),
		)
	}

	assistant, err := pdfchat.NewAssistant(opts...)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	defer assistant.Close()

	document, err := assistant.UploadFile(ctx, apiKey, c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", c.String("file"), err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %s: %d pages, %d chunks\n", document.Name, document.Pages, document.Chunks)

	questions := c.Args().Slice()
	if len(questions) > 0 {
		for _, question := range questions {
			if err := answer(ctx, c.App.Writer, assistant, apiKey, c.String("session"), question); err != nil {
				return err
			}
		}
		return nil
	}
	return answerLines(ctx, os.Stdin, c.App.Writer, assistant, apiKey, c.String("session"))
}

// answerLines treats every non-blank line of r as a question until EOF.
func answerLines(ctx context.Context, r io.Reader, w io.Writer, assistant *pdfchat.Assistant, apiKey, sessionID string) error {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if err := answer(ctx, w, assistant, apiKey, sessionID, question); err != nil {
			return err
		}
	}
}

func answer(ctx context.Context, w io.Writer, assistant *pdfchat.Assistant, apiKey, sessionID, question string) error {
	resp, err := assistant.Ask(ctx, apiKey, sessionID, question)
	if err != nil {
		return fmt.Errorf("question failed: %w", err)
	}
	fmt.Fprintln(w, resp.Answer)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
