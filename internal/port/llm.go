package port

import (
	"context"

	"ragserver/internal/domain"
)

// LLM represents a chat language model for text generation.
type LLM interface {
	// Complete generates a completion for the given request and reports
	// the token usage the provider billed for it.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// CompletionRequest describes a single chat completion call.
type CompletionRequest struct {
	System      string  // System prompt, empty to omit
	User        string  // User prompt
	MaxTokens   int     // Zero means provider default
	Temperature float32 // Sampling temperature
}

// Completion is the model output plus its token accounting.
type Completion struct {
	Text  string
	Usage domain.TokenUsage
}

// Reranker scores query-document pairs for relevance.
type Reranker interface {
	// Rerank scores the documents against the query and returns at most
	// topN results sorted by relevance score (highest first). Empty input
	// yields an empty result without calling the scoring service.
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankedResult, error)

	// ModelName returns the name of the reranking model.
	ModelName() string
}

// RerankedResult represents a reranked document.
type RerankedResult struct {
	Index int     // Original index in the input slice
	Score float64 // Relevance score (higher is better)
}
