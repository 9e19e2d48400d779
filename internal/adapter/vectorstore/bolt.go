package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"ragserver/internal/domain"
)

var bucketVectors = []byte("vectors")

// Bolt persists vectors in a BoltDB file and searches them brute force
// from an in-memory cache. It suits local setups that need persistence
// without running a vector database.
type Bolt struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	records   map[string]storedRecord
}

type storedRecord struct {
	DocID    string               `json:"doc_id"`
	Vector   []float32            `json:"v"`
	Text     string               `json:"text"`
	Metadata domain.ChunkMetadata `json:"m"`
}

// NewBolt creates a BoltDB-backed vector store on an open database handle.
func NewBolt(db *bbolt.DB, dimension int) (*Bolt, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	store := &Bolt{
		db:        db,
		dimension: dimension,
		records:   make(map[string]storedRecord),
	}

	if err := store.loadRecords(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return store, nil
}

// loadRecords loads all vectors from BoltDB into memory.
func (s *Bolt) loadRecords() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.records[string(k)] = stored
			return nil
		})
	})
}

func (s *Bolt) Ensure(_ context.Context) error {
	return nil
}

func (s *Bolt) Upsert(_ context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return fmt.Errorf("vectors bucket not found")
		}

		for _, rec := range records {
			if len(rec.Embedding) != s.dimension {
				return fmt.Errorf("vector dimension mismatch for %s: got %d, want %d", rec.ID, len(rec.Embedding), s.dimension)
			}

			stored := storedRecord{
				DocID:    rec.DocID,
				Vector:   rec.Embedding,
				Text:     rec.Text,
				Metadata: rec.Metadata,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(rec.ID), data); err != nil {
				return err
			}

			s.records[rec.ID] = stored
		}
		return nil
	})
}

func (s *Bolt) Query(_ context.Context, embedding []float32, topK int) ([]domain.RetrievedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(embedding), s.dimension)
	}
	if len(s.records) == 0 || topK <= 0 {
		return nil, nil
	}

	docs := make([]domain.RetrievedDocument, 0, len(s.records))
	for id, rec := range s.records {
		docs = append(docs, domain.RetrievedDocument{
			ID:       id,
			Score:    cosineSimilarity(embedding, rec.Vector),
			Text:     rec.Text,
			Metadata: rec.Metadata,
		})
	}

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

func (s *Bolt) DeleteByDoc(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, rec := range s.records {
		if rec.DocID == docID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.records, id)
		}
		return nil
	})
}

func (s *Bolt) Stats(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.IndexStats{
		TotalVectors: int64(len(s.records)),
		Dimension:    s.dimension,
		Fullness:     0,
	}, nil
}
