package vectorstore

import (
	"context"
	"testing"

	"ragserver/internal/domain"
)

func record(id, docID string, vec []float32, text string) domain.VectorRecord {
	return domain.VectorRecord{
		ID:        id,
		DocID:     docID,
		Embedding: vec,
		Text:      text,
		Metadata: domain.ChunkMetadata{
			Source:      "test.txt",
			Title:       "Test",
			Position:    0,
			TotalChunks: 1,
		},
	}
}

func TestMemoryQueryOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	err := m.Upsert(ctx, []domain.VectorRecord{
		record("d1_0", "d1", []float32{0, 1, 0}, "orthogonal"),
		record("d1_1", "d1", []float32{1, 0, 0}, "exact"),
		record("d2_0", "d2", []float32{0.9, 0.1, 0}, "close"),
	})
	if err != nil {
		t.Fatal(err)
	}

	docs, err := m.Query(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(docs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(docs))
	}
	if docs[0].ID != "d1_1" {
		t.Errorf("expected exact match first, got %s", docs[0].ID)
	}
	if docs[1].ID != "d2_0" {
		t.Errorf("expected close match second, got %s", docs[1].ID)
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].Score > docs[i-1].Score {
			t.Errorf("results not sorted descending at position %d", i)
		}
	}
}

func TestMemoryQueryTopK(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	for i, vec := range [][]float32{{1, 0}, {0, 1}, {1, 1}} {
		id := []string{"a", "b", "c"}[i]
		if err := m.Upsert(ctx, []domain.VectorRecord{record(id, "d", vec, id)}); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := m.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 results with topK=2, got %d", len(docs))
	}
}

func TestMemoryQueryEmptyCollection(t *testing.T) {
	m := NewMemory(2)

	docs, err := m.Query(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no results from empty collection, got %d", len(docs))
	}
}

func TestMemoryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	if err := m.Upsert(ctx, []domain.VectorRecord{record("x", "d", []float32{1, 0}, "short")}); err == nil {
		t.Error("expected upsert dimension mismatch error")
	}
	if _, err := m.Query(ctx, []float32{1, 0}, 5); err == nil {
		t.Error("expected query dimension mismatch error")
	}
}

func TestMemoryDeleteByDoc(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	err := m.Upsert(ctx, []domain.VectorRecord{
		record("d1_0", "d1", []float32{1, 0}, "keep me not"),
		record("d1_1", "d1", []float32{0, 1}, "keep me not either"),
		record("d2_0", "d2", []float32{1, 1}, "survivor"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteByDoc(ctx, "d1"); err != nil {
		t.Fatal(err)
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalVectors != 1 {
		t.Errorf("expected 1 vector after delete, got %d", stats.TotalVectors)
	}

	// Deleting an unknown doc succeeds and changes nothing.
	if err := m.DeleteByDoc(ctx, "missing"); err != nil {
		t.Fatal(err)
	}
	stats, _ = m.Stats(ctx)
	if stats.TotalVectors != 1 {
		t.Errorf("expected 1 vector after no-op delete, got %d", stats.TotalVectors)
	}
}

func TestMemoryUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	if err := m.Upsert(ctx, []domain.VectorRecord{record("d1_0", "d1", []float32{1, 0}, "old")}); err != nil {
		t.Fatal(err)
	}
	if err := m.Upsert(ctx, []domain.VectorRecord{record("d1_0", "d1", []float32{0, 1}, "new")}); err != nil {
		t.Fatal(err)
	}

	stats, _ := m.Stats(ctx)
	if stats.TotalVectors != 1 {
		t.Fatalf("expected 1 vector after overwrite, got %d", stats.TotalVectors)
	}

	docs, err := m.Query(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].Text != "new" {
		t.Errorf("expected overwritten text, got %q", docs[0].Text)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors: expected ~1, got %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: expected 0, got %f", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: expected 0, got %f", got)
	}
	if got := cosineSimilarity([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("length mismatch: expected 0, got %f", got)
	}
}
