package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ragserver/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	log     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ragserver",
	Short: "RAG server - index documents and answer questions with citations",
	Long: `ragserver indexes documents into a vector collection and answers
questions over them: embed the query, retrieve similar chunks, rerank
them with a cross-encoder and generate an answer with inline citations.

Example usage:
  ragserver serve                         # Run the HTTP API
  ragserver index ./docs                  # Index a directory of documents
  ragserver query -q "What is chunking?"  # Ask a one-shot question`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log = newLogger(cfg)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragserver.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Logging.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}
