package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragserver/internal/adapter/chunker"
	"ragserver/internal/usecase"
)

var (
	evalDataset string
	evalOut     string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate answer quality on a QA dataset",
	Long: `Index each dataset item's context document, run its question through
the pipeline and score the answer by keyword coverage.

Examples:
  ragserver eval
  ragserver eval --dataset eval/eval_dataset.json -o results.json`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVar(&evalDataset, "dataset", "eval/eval_dataset.json", "dataset file to evaluate")
	evalCmd.Flags().StringVarP(&evalOut, "out", "o", "", "write the full results JSON to this file")
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	datasetPath := evalDataset
	if !filepath.IsAbs(datasetPath) {
		datasetPath = filepath.Join(rootDir, datasetPath)
	}
	items, err := usecase.LoadDataset(datasetPath)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("dataset is empty: %s", datasetPath)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	store, closeStore, err := openVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	model, err := newLLM(cfg)
	if err != nil {
		return err
	}
	rr, err := newReranker(cfg)
	if err != nil {
		return err
	}

	split := chunker.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	indexer := usecase.NewIndexUseCase(split, embedder, store, log)
	querier := usecase.NewQueryUseCase(embedder, store, rr, model, queryDefaults(cfg), log)
	evaluator := usecase.NewEvaluator(indexer, querier, log)

	fmt.Printf("Evaluating %d questions from %s...\n", len(items), datasetPath)

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Evaluating[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
	evaluator.OnResult = func(usecase.EvalResult) {
		bar.Add(1)
	}

	report, err := evaluator.EvaluateDataset(ctx, items)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	agg := report.Aggregate
	fmt.Printf("\nEvaluation complete:\n")
	fmt.Printf("  Questions:     %d\n", agg.TotalQuestions)
	fmt.Printf("  Successful:    %d (%.1f%%)\n", agg.SuccessfulAnswers, agg.SuccessRate*100)
	fmt.Printf("  Avg precision: %.3f\n", agg.AvgPrecision)
	fmt.Printf("  Avg recall:    %.3f\n", agg.AvgRecall)

	if evalOut != "" {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		if err := os.WriteFile(evalOut, output, 0644); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		fmt.Printf("\nResults written to: %s\n", evalOut)
	}
	return nil
}
