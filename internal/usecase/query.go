package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"ragserver/internal/domain"
	"ragserver/internal/port"
)

// QueryDefaults are the pipeline parameters used when a caller does not
// override them per request.
type QueryDefaults struct {
	TopKRetrieval int
	TopKRerank    int
	MaxTokens     int
	Temperature   float32
}

// QueryUseCase runs the retrieval pipeline: embed the query, search the
// vector store, rerank the hits and generate a grounded answer.
type QueryUseCase struct {
	embedder port.Embedder
	store    port.VectorStore
	reranker port.Reranker // nil keeps similarity order
	llm      port.LLM
	defaults QueryDefaults
	log      *logrus.Logger
}

// NewQueryUseCase creates a new query use case. A nil reranker disables
// reranking; the top results then keep their vector similarity order.
func NewQueryUseCase(
	embedder port.Embedder,
	store port.VectorStore,
	reranker port.Reranker,
	llm port.LLM,
	defaults QueryDefaults,
	log *logrus.Logger,
) *QueryUseCase {
	if log == nil {
		log = logrus.New()
	}
	return &QueryUseCase{
		embedder: embedder,
		store:    store,
		reranker: reranker,
		llm:      llm,
		defaults: defaults,
		log:      log,
	}
}

// QueryResult is a pipeline run's answer plus its request-level accounting.
type QueryResult struct {
	Answer      domain.Answer `json:"answer"`
	TimingMS    float64       `json:"timing_ms"`
	SourcesUsed int           `json:"sources_used"`
}

// Answer runs the full pipeline for one query. Zero topK values fall back
// to the configured defaults. An empty index produces a canned answer with
// HasAnswer=false and no model call.
func (u *QueryUseCase) Answer(ctx context.Context, query string, topKRetrieval, topKRerank int) (QueryResult, error) {
	start := time.Now()

	retrieved, err := u.Retrieve(ctx, query, topKRetrieval)
	if err != nil {
		return QueryResult{}, err
	}

	if len(retrieved) == 0 {
		return QueryResult{
			Answer: domain.Answer{
				Answer:    noDocumentsAnswer,
				Citations: []domain.Citation{},
				HasAnswer: false,
			},
			TimingMS: elapsedMS(start),
		}, nil
	}

	reranked, err := u.Rerank(ctx, query, retrieved, topKRerank)
	if err != nil {
		return QueryResult{}, err
	}

	answer, err := u.GenerateAnswer(ctx, query, reranked)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{
		Answer:      answer,
		TimingMS:    elapsedMS(start),
		SourcesUsed: len(reranked),
	}

	u.log.WithFields(logrus.Fields{
		"sources":    result.SourcesUsed,
		"has_answer": answer.HasAnswer,
		"timing_ms":  result.TimingMS,
	}).Info("Query answered")

	return result, nil
}

// Retrieve embeds the query and returns the topK most similar chunks.
func (u *QueryUseCase) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedDocument, error) {
	if topK <= 0 {
		topK = u.defaults.TopKRetrieval
	}

	embedding, err := u.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	docs, err := u.store.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	return docs, nil
}

// Rerank rescores the retrieved documents against the query and returns at
// most topK of them, best first. The original similarity score is preserved
// alongside the rerank score.
func (u *QueryUseCase) Rerank(ctx context.Context, query string, docs []domain.RetrievedDocument, topK int) ([]domain.RerankedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = u.defaults.TopKRerank
	}
	if topK > len(docs) {
		topK = len(docs)
	}

	if u.reranker == nil {
		out := make([]domain.RerankedDocument, 0, topK)
		for _, d := range docs[:topK] {
			out = append(out, domain.RerankedDocument{
				RetrievedDocument: d,
				RerankScore:       d.Score,
				OriginalScore:     d.Score,
			})
		}
		return out, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	results, err := u.reranker.Rerank(ctx, query, texts, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to rerank documents: %w", err)
	}

	out := make([]domain.RerankedDocument, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(docs) {
			continue
		}
		d := docs[r.Index]
		out = append(out, domain.RerankedDocument{
			RetrievedDocument: d,
			RerankScore:       r.Score,
			OriginalScore:     d.Score,
		})
	}
	return out, nil
}

// elapsedMS returns the milliseconds since start, rounded to 2 decimals.
func elapsedMS(start time.Time) float64 {
	ms := float64(time.Since(start).Nanoseconds()) / 1e6
	return math.Round(ms*100) / 100
}
