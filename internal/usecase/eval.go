package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ragserver/internal/domain"
)

// ErrNoQAPairs means the model produced no usable QA pairs for a document,
// either by answering with invalid JSON or with an empty array.
var ErrNoQAPairs = errors.New("no qa pairs generated")

// Evaluator measures answer quality over QA datasets by running each
// question through the full pipeline and checking keyword coverage.
type Evaluator struct {
	indexer *IndexUseCase
	querier *QueryUseCase
	log     *logrus.Logger

	// OnResult, when set, receives each result as soon as it is produced.
	// Used for progress reporting during long runs.
	OnResult func(EvalResult)
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(indexer *IndexUseCase, querier *QueryUseCase, log *logrus.Logger) *Evaluator {
	if log == nil {
		log = logrus.New()
	}
	return &Evaluator{
		indexer: indexer,
		querier: querier,
		log:     log,
	}
}

// EvalResult is the outcome for a single evaluation question. Precision and
// recall are both keyword coverage (found/expected) - a deliberate
// simplification that makes them identical.
type EvalResult struct {
	ID               int      `json:"id"`
	Question         string   `json:"question"`
	ExpectedAnswer   string   `json:"expected_answer,omitempty"`
	Answer           string   `json:"answer"`
	Precision        float64  `json:"precision"`
	Recall           float64  `json:"recall"`
	Success          bool     `json:"success"`
	FoundKeywords    []string `json:"found_keywords"`
	ExpectedKeywords []string `json:"expected_keywords"`
}

// Aggregate summarizes one evaluation run.
type Aggregate struct {
	TotalQuestions    int     `json:"total_questions"`
	SuccessfulAnswers int     `json:"successful_answers"`
	SuccessRate       float64 `json:"success_rate"`
	AvgPrecision      float64 `json:"avg_precision"`
	AvgRecall         float64 `json:"avg_recall"`
}

// EvalReport is a complete evaluation run.
type EvalReport struct {
	Timestamp time.Time    `json:"timestamp"`
	Aggregate Aggregate    `json:"aggregate"`
	Results   []EvalResult `json:"individual_results"`
}

// DocumentEvaluation is the result of generating QA pairs from an uploaded
// document and evaluating each of them.
type DocumentEvaluation struct {
	DocID         string          `json:"doc_id"`
	ChunksIndexed int             `json:"chunks_indexed"`
	QAPairs       []domain.QAPair `json:"qa_pairs"`
	Report        EvalReport      `json:"report"`
}

// LoadDataset reads an evaluation dataset file: a JSON array of items.
func LoadDataset(path string) ([]domain.EvalItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var items []domain.EvalItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return items, nil
}

// EvaluateDataset indexes each item's context document and runs its question
// through the pipeline. Items whose context yields no chunks are still
// queried against whatever is already indexed.
func (e *Evaluator) EvaluateDataset(ctx context.Context, items []domain.EvalItem) (EvalReport, error) {
	results := make([]EvalResult, 0, len(items))
	for _, item := range items {
		_, err := e.indexer.IndexDocument(ctx, IndexRequest{
			Text:   item.ContextDocument,
			Source: fmt.Sprintf("eval_doc_%d", item.ID),
			Title:  fmt.Sprintf("Evaluation Document %d", item.ID),
		})
		if err != nil && !errors.Is(err, ErrNoChunks) {
			return EvalReport{}, fmt.Errorf("failed to index eval document %d: %w", item.ID, err)
		}

		result, err := e.evaluateQuestion(ctx, item.ID, item.Question, item.ExpectedAnswer, item.RelevantKeywords)
		if err != nil {
			return EvalReport{}, err
		}
		results = append(results, result)
	}
	return e.report(results), nil
}

// EvaluateDocument indexes the document, derives QA pairs from it and
// evaluates each one. Returns ErrNoQAPairs when pair generation yields
// nothing usable.
func (e *Evaluator) EvaluateDocument(ctx context.Context, text, title string) (DocumentEvaluation, error) {
	indexed, err := e.indexer.IndexDocument(ctx, IndexRequest{
		Text:   text,
		Source: "eval_document",
		Title:  title,
	})
	if err != nil {
		return DocumentEvaluation{}, fmt.Errorf("failed to index document: %w", err)
	}

	gen, err := e.querier.GenerateQAPairs(ctx, text, 5)
	if err != nil {
		return DocumentEvaluation{}, err
	}
	if !gen.Parsed || len(gen.Pairs) == 0 {
		e.log.WithField("parsed", gen.Parsed).Warn("QA pair generation produced nothing usable")
		return DocumentEvaluation{}, ErrNoQAPairs
	}

	results := make([]EvalResult, 0, len(gen.Pairs))
	for _, pair := range gen.Pairs {
		result, err := e.evaluateQuestion(ctx, pair.ID, pair.Question, pair.ExpectedAnswer, pair.RelevantKeywords)
		if err != nil {
			return DocumentEvaluation{}, err
		}
		results = append(results, result)
	}

	return DocumentEvaluation{
		DocID:         indexed.DocID,
		ChunksIndexed: indexed.ChunksIndexed,
		QAPairs:       gen.Pairs,
		Report:        e.report(results),
	}, nil
}

// evaluateQuestion runs one question through the pipeline and scores the
// answer by case-insensitive keyword containment. Success requires a
// non-refusal answer covering at least half the keywords.
func (e *Evaluator) evaluateQuestion(ctx context.Context, id int, question, expectedAnswer string, keywords []string) (EvalResult, error) {
	res, err := e.querier.Answer(ctx, question, 0, 0)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to answer eval question %d: %w", id, err)
	}

	answerLower := strings.ToLower(res.Answer.Answer)
	found := []string{}
	for _, kw := range keywords {
		if strings.Contains(answerLower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}

	recall := 0.0
	if len(keywords) > 0 {
		recall = float64(len(found)) / float64(len(keywords))
	}
	precision := recall

	result := EvalResult{
		ID:               id,
		Question:         question,
		ExpectedAnswer:   expectedAnswer,
		Answer:           truncate(res.Answer.Answer, 500),
		Precision:        round3(precision),
		Recall:           round3(recall),
		Success:          res.Answer.HasAnswer && recall >= 0.5,
		FoundKeywords:    found,
		ExpectedKeywords: keywords,
	}
	if e.OnResult != nil {
		e.OnResult(result)
	}
	return result, nil
}

func (e *Evaluator) report(results []EvalResult) EvalReport {
	agg := Aggregate{TotalQuestions: len(results)}
	var sumPrecision, sumRecall float64
	for _, r := range results {
		sumPrecision += r.Precision
		sumRecall += r.Recall
		if r.Success {
			agg.SuccessfulAnswers++
		}
	}
	if n := float64(len(results)); n > 0 {
		agg.SuccessRate = round3(float64(agg.SuccessfulAnswers) / n)
		agg.AvgPrecision = round3(sumPrecision / n)
		agg.AvgRecall = round3(sumRecall / n)
	}

	e.log.WithFields(logrus.Fields{
		"questions":    agg.TotalQuestions,
		"success_rate": agg.SuccessRate,
		"avg_recall":   agg.AvgRecall,
	}).Info("Evaluation finished")

	return EvalReport{
		Timestamp: time.Now().UTC(),
		Aggregate: agg,
		Results:   results,
	}
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
