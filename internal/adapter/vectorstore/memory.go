package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragserver/internal/domain"
)

// Memory is an in-memory vector store. It backs tests and small
// single-process deployments; search is brute force.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]domain.VectorRecord
}

func NewMemory(dimension int) *Memory {
	return &Memory{
		dimension: dimension,
		records:   make(map[string]domain.VectorRecord),
	}
}

func (m *Memory) Ensure(_ context.Context) error {
	return nil
}

func (m *Memory) Upsert(_ context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		if len(rec.Embedding) != m.dimension {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, want %d", rec.ID, len(rec.Embedding), m.dimension)
		}
		m.records[rec.ID] = rec
	}
	return nil
}

func (m *Memory) Query(_ context.Context, embedding []float32, topK int) ([]domain.RetrievedDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(embedding) != m.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(embedding), m.dimension)
	}
	if len(m.records) == 0 || topK <= 0 {
		return nil, nil
	}

	docs := make([]domain.RetrievedDocument, 0, len(m.records))
	for _, rec := range m.records {
		docs = append(docs, domain.RetrievedDocument{
			ID:       rec.ID,
			Score:    cosineSimilarity(embedding, rec.Embedding),
			Text:     rec.Text,
			Metadata: rec.Metadata,
		})
	}

	// Tie-break on ID so results are stable across map iteration order.
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].ID < docs[j].ID
	})

	if topK < len(docs) {
		docs = docs[:topK]
	}
	return docs, nil
}

func (m *Memory) DeleteByDoc(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, rec := range m.records {
		if rec.DocID == docID {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *Memory) Stats(_ context.Context) (domain.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return domain.IndexStats{
		TotalVectors: int64(len(m.records)),
		Dimension:    m.dimension,
		Fullness:     0,
	}, nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
