package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragserver/internal/port"
)

func TestClientComplete(t *testing.T) {
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": "Paris is the capital [1]."}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, APIKey: "k", Model: "test-model"})
	if err != nil {
		t.Fatal(err)
	}

	out, err := c.Complete(context.Background(), port.CompletionRequest{
		System:      "answer from context",
		User:        "what is the capital?",
		MaxTokens:   2048,
		Temperature: 0.1,
	})
	if err != nil {
		t.Fatal(err)
	}

	if out.Text != "Paris is the capital [1]." {
		t.Errorf("unexpected completion text: %q", out.Text)
	}
	if out.Usage.PromptTokens != 40 || out.Usage.CompletionTokens != 8 || out.Usage.TotalTokens != 48 {
		t.Errorf("unexpected usage: %+v", out.Usage)
	}

	if gotBody.Model != "test-model" {
		t.Errorf("expected model test-model, got %s", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(gotBody.Messages))
	}
	if gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Role != "user" {
		t.Errorf("unexpected message roles: %s, %s", gotBody.Messages[0].Role, gotBody.Messages[1].Role)
	}
	if gotBody.MaxTokens != 2048 {
		t.Errorf("expected max_tokens 2048, got %d", gotBody.MaxTokens)
	}
}

func TestClientCompleteNoSystemPrompt(t *testing.T) {
	var messageCount int
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []json.RawMessage `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		messageCount = len(body.Messages)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "ok"}}},
			"usage":   map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Complete(context.Background(), port.CompletionRequest{User: "hi"}); err != nil {
		t.Fatal(err)
	}
	if messageCount != 1 {
		t.Errorf("expected 1 message without system prompt, got %d", messageCount)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Options{Model: "m"}); err == nil {
		t.Error("expected error for empty API key")
	}
}
