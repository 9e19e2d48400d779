package reranker

import (
	"context"
	"sort"

	"ragserver/internal/port"
)

// SimpleReranker provides lexical reranking when no external reranking
// service is configured. Documents are scored by stemmed term overlap with
// the query, so inflected forms still count as matches.
type SimpleReranker struct{}

// NewSimpleReranker creates a new simple reranker.
func NewSimpleReranker() *SimpleReranker {
	return &SimpleReranker{}
}

// Rerank scores documents by query term overlap.
func (r *SimpleReranker) Rerank(_ context.Context, query string, documents []string, topN int) ([]port.RerankedResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	queryTerms := tokenizeSimple(query)
	results := make([]port.RerankedResult, len(documents))

	if len(queryTerms) == 0 {
		for i := range documents {
			results[i] = port.RerankedResult{Index: i, Score: 1.0 - float64(i)*0.01}
		}
		return truncate(results, topN), nil
	}

	for i, doc := range documents {
		results[i] = port.RerankedResult{
			Index: i,
			Score: calculateTermOverlap(queryTerms, doc),
		}
	}

	// Stable sort keeps the incoming (vector similarity) order on ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return truncate(results, topN), nil
}

// ModelName returns the model name.
func (r *SimpleReranker) ModelName() string {
	return "simple-tf"
}

func truncate(results []port.RerankedResult, topN int) []port.RerankedResult {
	if topN > 0 && len(results) > topN {
		return results[:topN]
	}
	return results
}

// tokenizeSimple splits text into lowercase stemmed terms.
func tokenizeSimple(text string) map[string]int {
	terms := make(map[string]int)
	word := ""
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			word += string(r)
		} else {
			if len(word) >= 2 {
				terms[stem(word)]++
			}
			word = ""
		}
	}
	if len(word) >= 2 {
		terms[stem(word)]++
	}
	return terms
}

// calculateTermOverlap calculates overlap between query terms and document.
func calculateTermOverlap(queryTerms map[string]int, doc string) float64 {
	docTerms := tokenizeSimple(doc)
	if len(docTerms) == 0 {
		return 0
	}

	matches := 0
	for term := range queryTerms {
		if _, exists := docTerms[term]; exists {
			matches++
		}
	}

	return float64(matches) / float64(len(queryTerms))
}
