package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragserver/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryTopN int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question over the indexed documents",
	Long: `Run one query through the full pipeline: embed, retrieve, rerank and
generate an answer with inline citations.

Examples:
  ragserver query -q "How does chunk overlap work?"
  ragserver query -q "What is reranking?" --top-k 20 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to answer (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "candidates retrieved from the vector store (default from config)")
	queryCmd.Flags().IntVarP(&queryTopN, "top-n", "n", 0, "contexts kept after reranking (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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

	querier := usecase.NewQueryUseCase(embedder, store, rr, model, queryDefaults(cfg), log)

	result, err := querier.Answer(ctx, queryText, queryTopK, queryTopN)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(result.Answer.Answer)
	if len(result.Answer.Citations) > 0 {
		fmt.Printf("\nSources:\n")
		for _, cit := range result.Answer.Citations {
			fmt.Printf("  [%d] %s (%s)\n", cit.Number, cit.Title, cit.Source)
		}
	}
	fmt.Printf("\n%.2f ms, %d tokens, %d sources\n",
		result.TimingMS, result.Answer.Usage.TotalTokens, result.SourcesUsed)
	return nil
}
