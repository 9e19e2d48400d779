package usecase

import (
	"context"
	"fmt"
	"strings"

	"ragserver/internal/domain"
	"ragserver/internal/port"
)

const (
	// noDocumentsAnswer is returned when retrieval finds nothing at all.
	noDocumentsAnswer = "No relevant documents found. Please index some documents first."

	// noContextAnswer is returned when the generator is handed zero contexts.
	noContextAnswer = "I don't have enough information to answer this question. Please provide relevant documents first."
)

const answerSystemPrompt = `You are a helpful assistant that answers questions based on the provided context.

IMPORTANT RULES:
1. Only use information from the provided context to answer the question.
2. Include inline citations using [1], [2], etc. to reference the source of each piece of information.
3. If the context doesn't contain enough information to answer the question, say "I cannot find enough information in the provided documents to answer this question."
4. Be concise but comprehensive.
5. Always cite your sources using the citation numbers provided.`

// refusalPhrases mark answers where the model declined for lack of context.
// Matched case-insensitively against the full answer text.
var refusalPhrases = []string{
	"cannot find enough information",
	"don't have enough information",
	"no information available",
	"not mentioned in the provided",
}

// citationTextLimit caps the context excerpt carried in a citation.
const citationTextLimit = 500

// GenerateAnswer asks the model to answer the query using only the given
// contexts. Citations are extracted by scanning the answer for the literal
// markers "[1]", "[2]", ... in context order. Zero contexts short-circuit
// to a canned answer without a model call.
func (u *QueryUseCase) GenerateAnswer(ctx context.Context, query string, contexts []domain.RerankedDocument) (domain.Answer, error) {
	if len(contexts) == 0 {
		return domain.Answer{
			Answer:    noContextAnswer,
			Citations: []domain.Citation{},
			HasAnswer: false,
		}, nil
	}

	userPrompt := fmt.Sprintf(
		"Context:\n%s\n\nQuestion: %s\n\nPlease provide a well-structured answer with inline citations [1], [2], etc.",
		contextBlock(contexts), query,
	)

	completion, err := u.llm.Complete(ctx, port.CompletionRequest{
		System:      answerSystemPrompt,
		User:        userPrompt,
		MaxTokens:   u.defaults.MaxTokens,
		Temperature: u.defaults.Temperature,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := completion.Text
	return domain.Answer{
		Answer:    answer,
		Citations: extractCitations(answer, contexts),
		HasAnswer: !containsRefusal(answer),
		Usage:     completion.Usage,
	}, nil
}

// contextBlock renders the numbered context sections the prompt and the
// citation markers refer to.
func contextBlock(contexts []domain.RerankedDocument) string {
	parts := make([]string, len(contexts))
	for i, c := range contexts {
		parts[i] = fmt.Sprintf("[%d] Source: %s\n%s", i+1, sourceOf(c), c.Text)
	}
	return strings.Join(parts, "\n\n")
}

// extractCitations returns a citation for every context whose marker appears
// verbatim in the answer, in context order.
func extractCitations(answer string, contexts []domain.RerankedDocument) []domain.Citation {
	citations := []domain.Citation{}
	for i, c := range contexts {
		marker := fmt.Sprintf("[%d]", i+1)
		if !strings.Contains(answer, marker) {
			continue
		}
		citations = append(citations, domain.Citation{
			Number: i + 1,
			Text:   truncate(c.Text, citationTextLimit),
			Source: sourceOf(c),
			Title:  titleOf(c),
		})
	}
	return citations
}

func containsRefusal(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func sourceOf(c domain.RerankedDocument) string {
	if c.Metadata.Source == "" {
		return "Unknown"
	}
	return c.Metadata.Source
}

func titleOf(c domain.RerankedDocument) string {
	if c.Metadata.Title == "" {
		return "Untitled"
	}
	return c.Metadata.Title
}

// truncate shortens s to at most n runes, appending "..." when it cuts.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// clip shortens s to at most n runes with no ellipsis.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
