package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientRerank(t *testing.T) {
	var gotBody rerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		// Deliberately unsorted to verify client-side ordering.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 2, "relevance_score": 0.41},
				{"index": 0, "relevance_score": 0.93},
				{"index": 1, "relevance_score": 0.77},
			},
		})
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, APIKey: "test-key", Model: "test-rerank"})
	if err != nil {
		t.Fatal(err)
	}

	docs := []string{"doc a", "doc b", "doc c"}
	results, err := c.Rerank(context.Background(), "query", docs, 2)
	if err != nil {
		t.Fatal(err)
	}

	if gotBody.Query != "query" || gotBody.Model != "test-rerank" || gotBody.TopN != 2 {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
	if len(gotBody.Documents) != 3 {
		t.Errorf("expected 3 documents in request, got %d", len(gotBody.Documents))
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results after topN truncation, got %d", len(results))
	}
	if results[0].Index != 0 || results[0].Score != 0.93 {
		t.Errorf("expected best result index 0 score 0.93, got %+v", results[0])
	}
	if results[1].Index != 1 || results[1].Score != 0.77 {
		t.Errorf("expected second result index 1 score 0.77, got %+v", results[1])
	}
}

func TestClientRerankEmptyDocuments(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}

	results, err := c.Rerank(context.Background(), "query", nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
	if calls != 0 {
		t.Errorf("expected no API call for empty documents, got %d", calls)
	}
}

func TestClientRerankServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Rerank(context.Background(), "query", []string{"a"}, 1); err == nil {
		t.Error("expected error from failing service, got nil")
	}
}

func TestClientRerankIgnoresOutOfRangeIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 7, "relevance_score": 0.99},
				{"index": 0, "relevance_score": 0.5},
			},
		})
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}

	results, err := c.Rerank(context.Background(), "query", []string{"only doc"}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Index != 0 {
		t.Errorf("expected only the in-range result, got %+v", results)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error for empty API key")
	}
}
