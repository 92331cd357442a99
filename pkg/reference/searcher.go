// Package reference enriches prompt context with externally stored notes,
// gated by a relevance trigger so reference lookups only run when the user
// plausibly wants them.
package reference

import (
	"context"
)

// SearchResult is one matching reference document.
type SearchResult struct {
	ID      string
	Title   string
	Content string
	Source  string
	Score   float64
}

// SearchOptions configure a reference search.
type SearchOptions struct {
	// Limit caps the number of results (default 5).
	Limit int
}

// Searcher is a reference-search plugin over an external notes store.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}
