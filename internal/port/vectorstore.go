package port

import (
	"context"

	"ragserver/internal/domain"
)

// VectorStore stores and searches embedding vectors.
type VectorStore interface {
	// Ensure creates the backing collection if it does not exist yet.
	// Calling it against an existing collection is a no-op.
	Ensure(ctx context.Context) error

	// Upsert adds or updates vector records. Records that share an ID with
	// a previously stored record overwrite it.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query finds the topK nearest records to the embedding, ordered by
	// similarity score descending.
	Query(ctx context.Context, embedding []float32, topK int) ([]domain.RetrievedDocument, error)

	// DeleteByDoc removes every record belonging to the given document.
	// Deleting an unknown document succeeds without effect.
	DeleteByDoc(ctx context.Context, docID string) error

	// Stats reports the current size of the index.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
