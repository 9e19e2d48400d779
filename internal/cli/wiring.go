package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"ragserver/config"
	"ragserver/internal/adapter/embedding"
	"ragserver/internal/adapter/llm"
	"ragserver/internal/adapter/reranker"
	"ragserver/internal/adapter/vectorstore"
	"ragserver/internal/port"
	"ragserver/internal/usecase"
)

// newEmbedder builds the embedding client, resolving the API key through
// the environment variable named in the config.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	apiKey := os.Getenv(cfg.Embedding.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key missing: set %s", cfg.Embedding.APIKeyEnv)
	}
	return embedding.New(embedding.Options{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    apiKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
	})
}

func newLLM(cfg *config.Config) (port.LLM, error) {
	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("llm API key missing: set %s", cfg.LLM.APIKeyEnv)
	}
	return llm.New(llm.Options{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.LLM.Model,
	})
}

// newReranker returns nil when reranking is disabled. Enabled but without
// an API key it falls back to local term-overlap scoring.
func newReranker(cfg *config.Config) (port.Reranker, error) {
	if !cfg.Reranker.Enabled {
		return nil, nil
	}
	apiKey := os.Getenv(cfg.Reranker.APIKeyEnv)
	if apiKey == "" {
		log.Warnf("%s is not set, falling back to term-overlap reranking", cfg.Reranker.APIKeyEnv)
		return reranker.NewSimpleReranker(), nil
	}
	return reranker.New(reranker.Options{
		BaseURL: cfg.Reranker.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.Reranker.Model,
	})
}

// openVectorStore opens the configured backend and ensures its collection
// exists. The returned closer may be nil.
func openVectorStore(ctx context.Context, cfg *config.Config) (port.VectorStore, func() error, error) {
	dim := cfg.Embedding.Dimension

	var (
		store  port.VectorStore
		closer func() error
	)
	switch cfg.VectorStore.Backend {
	case "qdrant":
		q, err := vectorstore.NewQdrant(vectorstore.QdrantOptions{
			URL:        cfg.VectorStore.URL,
			APIKey:     os.Getenv(cfg.VectorStore.APIKeyEnv),
			Collection: cfg.VectorStore.Collection,
			Dimension:  dim,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create qdrant store: %w", err)
		}
		store = q
	case "bolt":
		path := cfg.VectorStore.BoltPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootDir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open vector database: %w", err)
		}
		b, err := vectorstore.NewBolt(db, dim)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		store = b
		closer = db.Close
	case "memory":
		store = vectorstore.NewMemory(dim)
	default:
		return nil, nil, fmt.Errorf("unknown vector store backend: %s", cfg.VectorStore.Backend)
	}

	if err := store.Ensure(ctx); err != nil {
		if closer != nil {
			closer()
		}
		return nil, nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	return store, closer, nil
}

func queryDefaults(cfg *config.Config) usecase.QueryDefaults {
	return usecase.QueryDefaults{
		TopKRetrieval: cfg.Retrieval.TopKRetrieval,
		TopKRerank:    cfg.Retrieval.TopKRerank,
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
	}
}
