package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultBatchSize = 100

// Client embeds text through an OpenAI-compatible embeddings endpoint.
// Pointing BaseURL at a compatible provider (Google's OpenAI compatibility
// layer, OpenAI itself, a local server) is the only switch needed.
type Client struct {
	client    *openai.Client
	model     string
	dimension int
	batchSize int
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
}

func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("embedding API key is empty")
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", opts.Dimension)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	return &Client{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		dimension: opts.Dimension,
		batchSize: batch,
	}, nil
}

// Embed embeds the texts in input order, batching requests to stay under
// the provider's per-call input limit.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}

	for i, v := range vectors {
		if len(v) != c.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch for input %d: got %d, want %d", i, len(v), c.dimension)
		}
	}
	return vectors, nil
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) ModelName() string {
	return c.model
}
