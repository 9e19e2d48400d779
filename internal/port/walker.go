package port

// FileWalker expands glob patterns into readable document paths.
type FileWalker interface {
	// Walk resolves the patterns relative to root and returns matching
	// file paths in deterministic order.
	Walk(root string, patterns []string) ([]string, error)
}
