package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ragserver/internal/domain"
	"ragserver/internal/port"
)

const (
	qaDocumentLimit = 8000
	qaMaxTokens     = 2048
	qaTemperature   = 0.3
)

const qaSystemPromptFormat = `You are an expert at creating evaluation question-answer pairs from documents.
Your task is to generate exactly %d diverse QA pairs that can be used to evaluate a RAG system.

RULES:
1. Create questions that require understanding of the document content
2. Questions should cover different topics/sections of the document
3. Include a mix of factual, conceptual, and analytical questions
4. Each answer should be answerable from the document
5. Extract 3-5 relevant keywords that MUST appear in a correct answer

You MUST respond with ONLY a valid JSON array, no other text.`

const qaUserPromptFormat = `Document:
%s

Generate exactly %d QA pairs as a JSON array with this exact format:
[
  {
    "id": 1,
    "question": "Your question here?",
    "expected_answer": "The expected answer based on the document",
    "relevant_keywords": ["keyword1", "keyword2", "keyword3"]
  }
]

Respond with ONLY the JSON array, no markdown or other formatting.`

// QAGeneration carries the outcome of model-driven QA pair generation.
// Parsed is false when the model reply was not a valid JSON array; Pairs is
// then empty and Raw preserves the reply for diagnosis. A model that talks
// instead of emitting JSON is an expected outcome, not a transport error.
type QAGeneration struct {
	Pairs  []domain.QAPair
	Parsed bool
	Raw    string
}

// GenerateQAPairs asks the model to derive numPairs evaluation questions
// from the document. The document is clipped to its first 8000 runes; the
// reply is stripped of markdown code fences before parsing.
func (u *QueryUseCase) GenerateQAPairs(ctx context.Context, documentText string, numPairs int) (QAGeneration, error) {
	if numPairs <= 0 {
		numPairs = 5
	}

	completion, err := u.llm.Complete(ctx, port.CompletionRequest{
		System:      fmt.Sprintf(qaSystemPromptFormat, numPairs),
		User:        fmt.Sprintf(qaUserPromptFormat, clip(documentText, qaDocumentLimit), numPairs),
		MaxTokens:   qaMaxTokens,
		Temperature: qaTemperature,
	})
	if err != nil {
		return QAGeneration{}, fmt.Errorf("failed to generate qa pairs: %w", err)
	}

	raw := strings.TrimSpace(completion.Text)
	cleaned := stripCodeFences(raw)

	var pairs []domain.QAPair
	if err := json.Unmarshal([]byte(cleaned), &pairs); err != nil {
		u.log.WithError(err).Warn("QA pair reply was not valid JSON")
		return QAGeneration{Raw: raw}, nil
	}

	return QAGeneration{Pairs: pairs, Parsed: true, Raw: raw}, nil
}

// stripCodeFences unwraps a reply the model put inside a ```/```json block.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if parts := strings.SplitN(s, "```", 3); len(parts) > 1 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
