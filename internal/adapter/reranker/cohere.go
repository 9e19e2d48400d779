package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"ragserver/internal/port"
)

// Client implements cross-encoder reranking against a Cohere-compatible
// rerank endpoint. Cohere and Jina both speak this request shape.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("reranker API key is empty")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.ai/v1/rerank"
	}
	model := opts.Model
	if model == "" {
		model = "rerank-english-v3.0"
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Rerank scores the documents against the query and returns at most topN
// results, highest relevance first. Empty input returns empty output
// without touching the service.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]port.RerankedResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	// Rerank APIs cap the number of documents per request
	const maxDocs = 1000
	if len(documents) > maxDocs {
		documents = documents[:maxDocs]
	}

	reqBody := rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     c.model,
		TopN:      topN,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API returned status %d: %s", resp.StatusCode, string(body))
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]port.RerankedResult, 0, len(rerankResp.Results))
	for _, res := range rerankResp.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			continue
		}
		results = append(results, port.RerankedResult{
			Index: res.Index,
			Score: res.RelevanceScore,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// ModelName returns the model name.
func (c *Client) ModelName() string {
	return c.model
}
