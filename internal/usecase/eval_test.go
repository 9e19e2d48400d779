package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ragserver/internal/adapter/chunker"
	"ragserver/internal/adapter/embedding"
	"ragserver/internal/adapter/vectorstore"
	"ragserver/internal/domain"
	"ragserver/internal/port"
)

func newTestEvaluator(llm *fakeLLM) *Evaluator {
	embedder := embedding.NewMockEmbedder(64)
	store := vectorstore.NewMemory(64)
	splitter := chunker.NewSplitter(1000, 150)

	indexer := NewIndexUseCase(splitter, embedder, store, nil)
	querier := NewQueryUseCase(embedder, store, nil, llm, testDefaults(), nil)
	return NewEvaluator(indexer, querier, nil)
}

func TestEvaluateDataset(t *testing.T) {
	llm := &fakeLLM{responses: []port.Completion{
		{Text: "Paris is the capital of France [1]."},
		{Text: "I cannot find enough information in the provided documents to answer this question."},
	}}
	evaluator := newTestEvaluator(llm)

	var seen int
	evaluator.OnResult = func(EvalResult) { seen++ }

	items := []domain.EvalItem{
		{
			ID:               1,
			Question:         "What is the capital of France?",
			ContextDocument:  "Paris is the capital of France and its largest city.",
			ExpectedAnswer:   "Paris",
			RelevantKeywords: []string{"Paris", "France"},
		},
		{
			ID:               2,
			Question:         "How is bread baked?",
			ContextDocument:  "Bread is baked from flour, water and yeast.",
			ExpectedAnswer:   "With flour",
			RelevantKeywords: []string{"flour"},
		},
	}

	report, err := evaluator.EvaluateDataset(context.Background(), items)
	if err != nil {
		t.Fatalf("EvaluateDataset failed: %v", err)
	}

	if seen != 2 {
		t.Errorf("expected OnResult called twice, got %d", seen)
	}
	if report.Aggregate.TotalQuestions != 2 {
		t.Errorf("expected 2 questions, got %d", report.Aggregate.TotalQuestions)
	}
	if report.Aggregate.SuccessfulAnswers != 1 {
		t.Errorf("expected 1 successful answer, got %d", report.Aggregate.SuccessfulAnswers)
	}
	if report.Aggregate.SuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %f", report.Aggregate.SuccessRate)
	}
	if report.Aggregate.AvgRecall != 0.5 {
		t.Errorf("expected avg recall 0.5, got %f", report.Aggregate.AvgRecall)
	}

	first := report.Results[0]
	if first.Recall != 1.0 {
		t.Errorf("expected full keyword recall, got %f", first.Recall)
	}
	if !first.Success {
		t.Error("expected first question to succeed")
	}
	if len(first.FoundKeywords) != 2 {
		t.Errorf("expected both keywords found, got %v", first.FoundKeywords)
	}

	second := report.Results[1]
	if second.Success {
		t.Error("expected refusal answer to fail")
	}
	if second.Recall != 0 {
		t.Errorf("expected zero recall for refusal, got %f", second.Recall)
	}
}

func TestEvaluateDatasetKeywordsCaseInsensitive(t *testing.T) {
	llm := &fakeLLM{responses: []port.Completion{
		{Text: "PARIS is the capital [1]."},
	}}
	evaluator := newTestEvaluator(llm)

	items := []domain.EvalItem{{
		ID:               1,
		Question:         "What is the capital of France?",
		ContextDocument:  "Paris is the capital of France.",
		RelevantKeywords: []string{"paris"},
	}}

	report, err := evaluator.EvaluateDataset(context.Background(), items)
	if err != nil {
		t.Fatalf("EvaluateDataset failed: %v", err)
	}
	if report.Results[0].Recall != 1.0 {
		t.Errorf("expected case-insensitive keyword match, recall = %f", report.Results[0].Recall)
	}
}

func TestEvaluateDocument(t *testing.T) {
	qaJSON := `[{"id": 1, "question": "What is the capital of France?", "expected_answer": "Paris", "relevant_keywords": ["Paris"]}]`
	llm := &fakeLLM{responses: []port.Completion{
		{Text: qaJSON},
		{Text: "The capital is Paris [1]."},
	}}
	evaluator := newTestEvaluator(llm)

	result, err := evaluator.EvaluateDocument(context.Background(), "Paris is the capital of France.", "Geography")
	if err != nil {
		t.Fatalf("EvaluateDocument failed: %v", err)
	}

	if result.DocID == "" {
		t.Error("expected indexed doc id")
	}
	if result.ChunksIndexed != 1 {
		t.Errorf("expected 1 chunk indexed, got %d", result.ChunksIndexed)
	}
	if len(result.QAPairs) != 1 {
		t.Fatalf("expected 1 qa pair, got %d", len(result.QAPairs))
	}
	if result.Report.Aggregate.TotalQuestions != 1 {
		t.Errorf("expected 1 question evaluated, got %d", result.Report.Aggregate.TotalQuestions)
	}
	if result.Report.Aggregate.SuccessfulAnswers != 1 {
		t.Errorf("expected the answer to succeed, got %d successes", result.Report.Aggregate.SuccessfulAnswers)
	}
}

func TestEvaluateDocumentNoQAPairs(t *testing.T) {
	llm := &fakeLLM{responses: []port.Completion{
		{Text: "I'd be happy to help you create some questions!"},
	}}
	evaluator := newTestEvaluator(llm)

	_, err := evaluator.EvaluateDocument(context.Background(), "Paris is the capital of France.", "Geography")
	if !errors.Is(err, ErrNoQAPairs) {
		t.Fatalf("expected ErrNoQAPairs, got %v", err)
	}
}

func TestEvaluateDocumentEmptyText(t *testing.T) {
	evaluator := newTestEvaluator(&fakeLLM{})

	_, err := evaluator.EvaluateDocument(context.Background(), "   ", "Empty")
	if !errors.Is(err, ErrNoChunks) {
		t.Fatalf("expected ErrNoChunks, got %v", err)
	}
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.json")
	data := `[{"id": 1, "question": "Q?", "context_document": "Doc.", "expected_answer": "A", "relevant_keywords": ["a", "b"]}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Question != "Q?" || len(items[0].RelevantKeywords) != 2 {
		t.Errorf("unexpected item: %+v", items[0])
	}

	if _, err := LoadDataset(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing dataset file")
	}
}
