package port

import "ragserver/internal/domain"

// Chunker splits document text into overlapping chunks ready for embedding.
type Chunker interface {
	// Chunk splits text into chunks carrying source metadata. Degenerate
	// input (empty or whitespace-only text) yields zero chunks.
	Chunk(text, source, title, section string) []domain.Chunk
}
