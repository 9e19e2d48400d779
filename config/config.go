package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the RAG server.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	Reranker    RerankerConfig    `yaml:"reranker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ChunkingConfig holds document chunking configuration.
type ChunkingConfig struct {
	Size    int `yaml:"size"`    // Target chunk size in characters
	Overlap int `yaml:"overlap"` // Characters carried over between chunks
}

// RetrievalConfig holds retrieval pipeline configuration.
type RetrievalConfig struct {
	TopKRetrieval int `yaml:"top_k_retrieval"` // Candidates fetched from the vector store
	TopKRerank    int `yaml:"top_k_rerank"`    // Candidates kept after reranking
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`    // OpenAI-compatible endpoint
	Model     string `yaml:"model"`       // e.g. "gemini-embedding-001"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig holds chat completion provider configuration.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"` // OpenAI-compatible endpoint
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// RerankerConfig holds reranking service configuration.
type RerankerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"` // Cohere-compatible /rerank endpoint
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// VectorStoreConfig holds vector store configuration.
type VectorStoreConfig struct {
	Backend    string `yaml:"backend"` // "qdrant", "bolt" or "memory"
	Collection string `yaml:"collection"`
	URL        string `yaml:"url"` // Qdrant base URL
	APIKeyEnv  string `yaml:"api_key_env"`
	BoltPath   string `yaml:"bolt_path"` // Database file for the bolt backend
}

// DatabaseConfig holds the optional Postgres connection used for
// conversations and query logs.
type DatabaseConfig struct {
	URLEnv string `yaml:"url_env"` // Environment variable holding the DSN
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 150,
		},
		Retrieval: RetrievalConfig{
			TopKRetrieval: 10,
			TopKRerank:    5,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:     "gemini-embedding-001",
			APIKeyEnv: "GOOGLE_API_KEY",
			Dimension: 3072,
			BatchSize: 100,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			APIKeyEnv:   "GROQ_API_KEY",
			MaxTokens:   2048,
			Temperature: 0.1,
		},
		Reranker: RerankerConfig{
			Enabled:   true,
			BaseURL:   "https://api.jina.ai/v1/rerank",
			Model:     "jina-reranker-v2-base-multilingual",
			APIKeyEnv: "JINA_API_KEY",
		},
		VectorStore: VectorStoreConfig{
			Backend:    "qdrant",
			Collection: "rag-documents",
			URL:        "http://localhost:6333",
			APIKeyEnv:  "QDRANT_API_KEY",
			BoltPath:   filepath.Join(".ragserver", "vectors.db"),
		},
		Database: DatabaseConfig{
			URLEnv: "DATABASE_URL",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragserver.yaml).
func LoadFromDir(dir string) (*Config, error) {
	// Try ragserver.yaml in the directory
	path := filepath.Join(dir, "ragserver.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .ragserver/config.yaml
	path = filepath.Join(dir, ".ragserver", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
