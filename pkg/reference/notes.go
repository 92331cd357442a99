package reference

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NotesIndex is a local, embedded reference store backed by chromem-go.
// It implements Searcher for hosts that keep notes on-device rather than in
// an external service.
type NotesIndex struct {
	collection *chromem.Collection
	count      int
}

// NewNotesIndex creates an empty in-memory notes index.
func NewNotesIndex(embedder Embedder) (*NotesIndex, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection("notes", nil, chromem.EmbeddingFunc(embedder.Embed))
	if err != nil {
		return nil, fmt.Errorf("failed to create notes collection: %w", err)
	}
	return &NotesIndex{collection: collection}, nil
}

// Add indexes a note.
func (n *NotesIndex) Add(ctx context.Context, id, title, content string) error {
	err := n.collection.AddDocument(ctx, chromem.Document{
		ID:       id,
		Content:  content,
		Metadata: map[string]string{"title": title},
	})
	if err != nil {
		return fmt.Errorf("failed to index note: %w", err)
	}
	n.count++
	return nil
}

// Search returns the closest notes to the query.
func (n *NotesIndex) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > n.count {
		limit = n.count
	}
	if limit == 0 {
		return nil, nil
	}

	matches, err := n.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("notes query failed: %w", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			ID:      m.ID,
			Title:   m.Metadata["title"],
			Content: m.Content,
			Source:  "notes",
			Score:   float64(m.Similarity),
		})
	}
	return results, nil
}
