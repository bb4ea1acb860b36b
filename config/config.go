// Package config loads the YAML application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/ingestion"
	"github.com/poiesic/pdfchat/retrieval"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP service and its on-disk state.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	DataDir  string `yaml:"data_dir"`
	TempPath string `yaml:"temp_path"`
}

// AIConfig configures the embedding and chat services.
type AIConfig struct {
	EmbeddingHost     string `yaml:"embedding_host"`
	EmbeddingModel    string `yaml:"embedding_model"`
	EmbeddingTokenEnv string `yaml:"embedding_token_env"`
	ChatHost          string `yaml:"chat_host"`
	ChatModel         string `yaml:"chat_model"`
	TimeoutSecs       int    `yaml:"timeout_secs"`
}

// ChunkerConfig configures how pages are split into chunks.
type ChunkerConfig struct {
	Type    string `yaml:"type"`
	Size    int    `yaml:"size"`
	Overlap int    `yaml:"overlap"`
}

// RetrieverConfig configures similarity search.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// IndexerConfig configures concurrent embedding.
type IndexerConfig struct {
	PoolSize     int `yaml:"pool_size"`
	BatchSize    int `yaml:"batch_size"`
	MaxAttempts  int `yaml:"max_attempts"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	AI        AIConfig        `yaml:"ai"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Indexer   IndexerConfig   `yaml:"indexer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// An empty path also returns defaults.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Validate checks values that have no usable default.
func (c *AppConfig) Validate() error {
	if _, err := ingestion.NewSplitter(c.Chunker.Type, c.Chunker.Size, c.Chunker.Overlap); err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	if c.Retriever.TopK <= 0 {
		return fmt.Errorf("retriever: %w", retrieval.ErrInvalidTopK)
	}
	if c.Indexer.BatchSize <= 0 {
		return fmt.Errorf("indexer: %w", ingestion.ErrInvalidBatchSize)
	}
	if c.Indexer.MaxAttempts <= 0 {
		return fmt.Errorf("indexer: %w", ingestion.ErrInvalidMaxAttempts)
	}
	return c.ModelConfig().Validate()
}

// ModelConfig converts the ai section into an ai.Config. The embedding token
// is read from the environment variable named by EmbeddingTokenEnv, falling
// back to HF_TOKEN.
func (c *AppConfig) ModelConfig() *ai.Config {
	token := os.Getenv(c.AI.EmbeddingTokenEnv)
	if token == "" {
		token = os.Getenv("HF_TOKEN")
	}
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithEmbeddingToken(token),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithTimeout(time.Duration(c.AI.TimeoutSecs)*time.Second),
	)
}

// RetryDelay returns the indexer's base backoff delay.
func (c *AppConfig) RetryDelay() time.Duration {
	return time.Duration(c.Indexer.RetryDelayMs) * time.Millisecond
}

func applyDefaults(cfg *AppConfig) {
	defaults := ai.DefaultConfig()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.TempPath == "" {
		cfg.Server.TempPath = ingestion.DefaultTempPath
	}

	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = defaults.EmbeddingHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = defaults.EmbeddingModel
	}
	if cfg.AI.EmbeddingTokenEnv == "" {
		cfg.AI.EmbeddingTokenEnv = "EMBEDDING_TOKEN"
	}
	if cfg.AI.ChatHost == "" {
		cfg.AI.ChatHost = defaults.ChatHost
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = defaults.ChatModel
	}
	if cfg.AI.TimeoutSecs == 0 {
		cfg.AI.TimeoutSecs = int(defaults.Timeout / time.Second)
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = ingestion.SplitterWindow
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = ingestion.DefaultChunkSize
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = ingestion.DefaultChunkOverlap
	}

	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = retrieval.DefaultTopK
	}

	if cfg.Indexer.BatchSize == 0 {
		cfg.Indexer.BatchSize = ingestion.DefaultBatchSize
	}
	if cfg.Indexer.MaxAttempts == 0 {
		cfg.Indexer.MaxAttempts = ingestion.DefaultMaxAttempts
	}
	if cfg.Indexer.RetryDelayMs == 0 {
		cfg.Indexer.RetryDelayMs = int(ingestion.DefaultRetryBaseDelay / time.Millisecond)
	}
}
