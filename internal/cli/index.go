package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragserver/internal/adapter/chunker"
	"ragserver/internal/adapter/fs"
	"ragserver/internal/usecase"
)

var (
	indexPatterns []string
	indexExcludes []string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index documents for retrieval",
	Long: `Index a file or a directory of documents. Each file becomes one
document: chunked, embedded and stored in the vector collection, with
the relative path as its source.

Examples:
  ragserver index ./docs                          # Index every file under ./docs
  ragserver index ./docs -p "**/*.md"             # Only markdown files
  ragserver index ./docs -x "**/drafts/**"        # Skip the drafts directory
  ragserver index notes.md                        # Index a single file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringArrayVarP(&indexPatterns, "pattern", "p", nil, "glob pattern for files to index (repeatable, default all files)")
	indexCmd.Flags().StringArrayVarP(&indexExcludes, "exclude", "x", nil, "glob pattern for files to skip (repeatable)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
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

	split := chunker.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	indexer := usecase.NewIndexUseCase(split, embedder, store, log)

	base := path
	var files []string
	if info.IsDir() {
		files, err = fs.NewWalker(indexExcludes...).Walk(path, indexPatterns)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", path, err)
		}
	} else {
		files = []string{path}
		base = filepath.Dir(path)
	}

	if len(files) == 0 {
		fmt.Println("No files matched.")
		return nil
	}

	fmt.Printf("Indexing %d files from %s...\n", len(files), path)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	var indexed, skipped, chunks int
	var failures []string
	for i, file := range files {
		source := relSource(base, file)

		text, err := fs.ReadFile(file)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", source, err))
			bar.Set(i + 1)
			continue
		}

		result, err := indexer.IndexDocument(ctx, usecase.IndexRequest{
			Text:   text,
			Source: source,
			Title:  filepath.Base(file),
		})
		switch {
		case errors.Is(err, usecase.ErrNoChunks):
			skipped++
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", source, err))
		default:
			indexed++
			chunks += result.ChunksIndexed
		}
		bar.Set(i + 1)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files indexed: %d\n", indexed)
	if skipped > 0 {
		fmt.Printf("  Files skipped: %d (empty)\n", skipped)
	}
	fmt.Printf("  Chunks stored: %d\n", chunks)

	if len(failures) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, f := range failures {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}

// relSource derives the document source from the file's path relative to
// the indexing root, with forward slashes on every platform.
func relSource(base, file string) string {
	rel, err := filepath.Rel(base, file)
	if err != nil {
		rel = file
	}
	return filepath.ToSlash(rel)
}
