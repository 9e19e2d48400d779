package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ragserver/internal/adapter/chunker"
	"ragserver/internal/adapter/convstore"
	"ragserver/internal/server"
	"ragserver/internal/usecase"
)

var (
	serveHost    string
	servePort    int
	serveDataset string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API: document indexing, retrieval-augmented question
answering, evaluation and conversation endpoints.

Conversations need a Postgres database; without one the server still runs
and the conversation endpoints answer 503.

Examples:
  ragserver serve
  ragserver serve --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind address (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	serveCmd.Flags().StringVar(&serveDataset, "dataset", "eval/eval_dataset.json", "evaluation dataset served by POST /eval")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	convs, err := convstore.NewPostgres(ctx, os.Getenv(cfg.Database.URLEnv), log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer convs.Close()
	if !convs.Configured() {
		log.Warnf("%s is not set, conversation endpoints disabled", cfg.Database.URLEnv)
	}

	split := chunker.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	indexer := usecase.NewIndexUseCase(split, embedder, store, log)
	querier := usecase.NewQueryUseCase(embedder, store, rr, model, queryDefaults(cfg), log)
	evaluator := usecase.NewEvaluator(indexer, querier, log)

	datasetPath := serveDataset
	if !filepath.IsAbs(datasetPath) {
		datasetPath = filepath.Join(rootDir, datasetPath)
	}

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	listenPort := cfg.Server.Port
	if servePort > 0 {
		listenPort = servePort
	}

	srv := server.New(indexer, querier, evaluator, convs, datasetPath, log)
	return srv.Run(fmt.Sprintf("%s:%d", host, listenPort))
}
