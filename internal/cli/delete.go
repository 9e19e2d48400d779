package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <doc_id>",
	Short: "Delete an indexed document",
	Long: `Remove every vector belonging to a document from the collection.
Deleting an unknown document succeeds without effect.

Examples:
  ragserver delete 1a2b3c4d`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, closeStore, err := openVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	if err := store.DeleteByDoc(ctx, args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Deleted document %s\n", args[0])
	return nil
}
