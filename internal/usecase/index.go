package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ragserver/internal/domain"
	"ragserver/internal/port"
)

// ErrNoChunks means the document text produced no indexable chunks
// (empty or whitespace-only input).
var ErrNoChunks = errors.New("no chunks created")

// IndexUseCase handles document ingestion: chunk, embed, upsert.
type IndexUseCase struct {
	chunker  port.Chunker
	embedder port.Embedder
	store    port.VectorStore
	log      *logrus.Logger
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(
	chunker port.Chunker,
	embedder port.Embedder,
	store port.VectorStore,
	log *logrus.Logger,
) *IndexUseCase {
	if log == nil {
		log = logrus.New()
	}
	return &IndexUseCase{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		log:      log,
	}
}

// IndexRequest describes one document to ingest. DocID is optional; when
// set, any previously indexed vectors under that ID are replaced.
type IndexRequest struct {
	Text    string
	Source  string
	Title   string
	Section string
	DocID   string
}

// IndexResult reports what an ingestion produced.
type IndexResult struct {
	DocID         string `json:"doc_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// NewDocID returns a short random document identifier.
func NewDocID() string {
	return uuid.NewString()[:8]
}

// IndexDocument chunks the text, embeds every chunk and upserts the vectors.
// Returns ErrNoChunks when the text yields nothing to index.
func (u *IndexUseCase) IndexDocument(ctx context.Context, req IndexRequest) (IndexResult, error) {
	docID := req.DocID
	replace := docID != ""
	if docID == "" {
		docID = NewDocID()
	}
	source := req.Source
	if source == "" {
		source = "unknown"
	}
	title := req.Title
	if title == "" {
		title = "Untitled"
	}

	chunks := u.chunker.Chunk(req.Text, source, title, req.Section)
	if len(chunks) == 0 {
		return IndexResult{DocID: docID}, ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return IndexResult{}, fmt.Errorf("failed to embed chunks: %w", err)
	}

	// For an explicit doc ID this is a re-index: drop the old vectors first
	// so a shrinking document leaves no stale tail chunks behind. Deleting
	// after the embed call keeps the old version intact if embedding fails.
	if replace {
		if err := u.store.DeleteByDoc(ctx, docID); err != nil {
			return IndexResult{}, fmt.Errorf("failed to delete previous version: %w", err)
		}
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.VectorRecord{
			ID:        fmt.Sprintf("%s_%d", docID, i),
			DocID:     docID,
			Embedding: embeddings[i],
			Text:      c.Text,
			Metadata:  c.Metadata,
		}
	}

	if err := u.store.Upsert(ctx, records); err != nil {
		return IndexResult{}, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	u.log.WithFields(logrus.Fields{
		"doc_id": docID,
		"chunks": len(records),
		"source": source,
	}).Info("Document indexed")

	return IndexResult{DocID: docID, ChunksIndexed: len(records)}, nil
}

// DeleteDocument removes every vector belonging to the document. Deleting
// an unknown ID is a no-op.
func (u *IndexUseCase) DeleteDocument(ctx context.Context, docID string) error {
	if err := u.store.DeleteByDoc(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	u.log.WithField("doc_id", docID).Info("Document deleted")
	return nil
}

// Stats reports the state of the vector collection.
func (u *IndexUseCase) Stats(ctx context.Context) (domain.IndexStats, error) {
	return u.store.Stats(ctx)
}
