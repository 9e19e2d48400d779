package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ragserver/internal/domain"
)

// Qdrant is a vector store gateway backed by a Qdrant collection, spoken
// to over its REST API. The gateway owns exactly one collection at a
// fixed dimension with cosine distance.
type Qdrant struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	httpClient *http.Client
	logger     *logrus.Logger
}

// QdrantOptions configures a Qdrant gateway.
type QdrantOptions struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
}

// pointPayload is the metadata stored alongside each vector. The logical
// record id lives in the payload because Qdrant point ids must be UUIDs
// or unsigned integers.
type pointPayload struct {
	RecordID    string `json:"_id"`
	DocID       string `json:"doc_id"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Section     string `json:"section,omitempty"`
	Position    int    `json:"position"`
	TotalChunks int    `json:"total_chunks"`
}

func NewQdrant(opts QdrantOptions, logger *logrus.Logger) (*Qdrant, error) {
	if opts.URL == "" {
		return nil, errors.New("qdrant URL is empty")
	}
	if opts.Collection == "" {
		return nil, errors.New("qdrant collection name is empty")
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("invalid vector dimension: %d", opts.Dimension)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Qdrant{
		baseURL:    opts.URL,
		apiKey:     opts.APIKey,
		collection: opts.Collection,
		dimension:  opts.Dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

func (q *Qdrant) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// Ensure creates the collection if it does not exist. An existing
// collection is reused after verifying its dimension matches.
func (q *Qdrant) Ensure(ctx context.Context) error {
	body, status, err := q.doRequest(ctx, http.MethodGet, "/collections/"+q.collection, nil)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusOK:
		var info struct {
			Result struct {
				Config struct {
					Params struct {
						Vectors struct {
							Size int `json:"size"`
						} `json:"vectors"`
					} `json:"params"`
				} `json:"config"`
			} `json:"result"`
		}
		if err := json.Unmarshal(body, &info); err != nil {
			return fmt.Errorf("failed to parse collection info: %w", err)
		}
		if got := info.Result.Config.Params.Vectors.Size; got != 0 && got != q.dimension {
			return fmt.Errorf("collection %s has dimension %d, want %d", q.collection, got, q.dimension)
		}
		return nil

	case status == http.StatusNotFound:
		createBody := map[string]interface{}{
			"vectors": map[string]interface{}{
				"size":     q.dimension,
				"distance": "Cosine",
			},
		}
		body, status, err = q.doRequest(ctx, http.MethodPut, "/collections/"+q.collection, createBody)
		if err != nil {
			return err
		}
		if status >= 400 {
			return fmt.Errorf("failed to create collection: status %d: %s", status, string(body))
		}
		q.logger.WithField("collection", q.collection).Info("Collection created")
		return nil

	default:
		return fmt.Errorf("failed to check collection: status %d: %s", status, string(body))
	}
}

// Upsert writes records into the collection, overwriting any point that
// shares a record id.
func (q *Qdrant) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	type point struct {
		ID      string       `json:"id"`
		Vector  []float32    `json:"vector"`
		Payload pointPayload `json:"payload"`
	}

	points := make([]point, len(records))
	for i, rec := range records {
		if len(rec.Embedding) != q.dimension {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, want %d", rec.ID, len(rec.Embedding), q.dimension)
		}
		points[i] = point{
			ID:     pointID(rec.ID),
			Vector: rec.Embedding,
			Payload: pointPayload{
				RecordID:    rec.ID,
				DocID:       rec.DocID,
				Text:        rec.Text,
				Source:      rec.Metadata.Source,
				Title:       rec.Metadata.Title,
				Section:     rec.Metadata.Section,
				Position:    rec.Metadata.Position,
				TotalChunks: rec.Metadata.TotalChunks,
			},
		}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", q.collection)
	body, status, err := q.doRequest(ctx, http.MethodPut, path, map[string]interface{}{"points": points})
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("failed to upsert points: status %d: %s", status, string(body))
	}

	q.logger.WithFields(logrus.Fields{
		"collection": q.collection,
		"count":      len(points),
	}).Debug("Points upserted")
	return nil
}

// Query returns up to topK nearest neighbors by cosine similarity,
// descending by score. An empty collection yields an empty result.
func (q *Qdrant) Query(ctx context.Context, embedding []float32, topK int) ([]domain.RetrievedDocument, error) {
	if len(embedding) != q.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(embedding), q.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	searchBody := map[string]interface{}{
		"vector":       embedding,
		"limit":        topK,
		"with_payload": true,
	}

	path := fmt.Sprintf("/collections/%s/points/search", q.collection)
	body, status, err := q.doRequest(ctx, http.MethodPost, path, searchBody)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("search failed: status %d: %s", status, string(body))
	}

	var resp struct {
		Result []struct {
			Score   float64      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	docs := make([]domain.RetrievedDocument, len(resp.Result))
	for i, hit := range resp.Result {
		docs[i] = domain.RetrievedDocument{
			ID:    hit.Payload.RecordID,
			Score: hit.Score,
			Text:  hit.Payload.Text,
			Metadata: domain.ChunkMetadata{
				Source:      hit.Payload.Source,
				Title:       hit.Payload.Title,
				Section:     hit.Payload.Section,
				Position:    hit.Payload.Position,
				TotalChunks: hit.Payload.TotalChunks,
			},
		}
	}
	return docs, nil
}

// DeleteByDoc removes every point whose payload doc_id matches. Unknown
// doc ids delete nothing and succeed.
func (q *Qdrant) DeleteByDoc(ctx context.Context, docID string) error {
	deleteBody := map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "doc_id",
					"match": map[string]interface{}{"value": docID},
				},
			},
		},
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collection)
	body, status, err := q.doRequest(ctx, http.MethodPost, path, deleteBody)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("failed to delete points: status %d: %s", status, string(body))
	}

	q.logger.WithFields(logrus.Fields{
		"collection": q.collection,
		"doc_id":     docID,
	}).Debug("Points deleted")
	return nil
}

// Stats reports the exact point count and configured dimension. Fullness
// is a managed-index notion with no Qdrant equivalent and reads as zero.
func (q *Qdrant) Stats(ctx context.Context) (domain.IndexStats, error) {
	path := fmt.Sprintf("/collections/%s/points/count", q.collection)
	body, status, err := q.doRequest(ctx, http.MethodPost, path, map[string]interface{}{"exact": true})
	if err != nil {
		return domain.IndexStats{}, err
	}
	if status >= 400 {
		return domain.IndexStats{}, fmt.Errorf("failed to count points: status %d: %s", status, string(body))
	}

	var resp struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.IndexStats{}, fmt.Errorf("failed to parse count response: %w", err)
	}

	return domain.IndexStats{
		TotalVectors: resp.Result.Count,
		Dimension:    q.dimension,
		Fullness:     0,
	}, nil
}

// pointID derives a stable UUID for a logical record id, so re-indexing
// the same document overwrites its previous points.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}
