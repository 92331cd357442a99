// Package graph provides bounded, cycle-safe traversal over the
// relationship graph.
package graph

import (
	"context"
	"fmt"

	"github.com/lifectx/engine/pkg/store"
)

// Subgraph is the induced subgraph returned by a traversal: every visited
// entity plus every edge touched on the way, deduplicated by edge id.
type Subgraph struct {
	Entities      []*store.Entity
	Relationships []*store.Relationship
}

// Traverser walks the relationship graph from a start entity.
type Traverser struct {
	store store.EntityStore
}

// NewTraverser creates a traverser over the given store.
func NewTraverser(entityStore store.EntityStore) *Traverser {
	return &Traverser{store: entityStore}
}

// Traverse performs a breadth-first walk from startID up to maxDepth hops.
// Edges are treated as undirected for discovery. The visited set guarantees
// termination on cyclic graphs; the work queue keeps stack depth bounded
// regardless of graph shape.
func (t *Traverser) Traverse(ctx context.Context, startID string, maxDepth int) (*Subgraph, error) {
	if maxDepth < 0 {
		maxDepth = 0
	}

	start, err := t.store.GetEntity(ctx, startID)
	if err != nil {
		return nil, fmt.Errorf("failed to load start entity: %w", err)
	}
	if start == nil {
		return nil, fmt.Errorf("traverse from %q: %w", startID, store.ErrEntityNotFound)
	}

	type queueItem struct {
		id    string
		depth int
	}

	visited := map[string]bool{startID: true}
	seenEdges := make(map[string]bool)

	result := &Subgraph{Entities: []*store.Entity{start}}
	queue := []queueItem{{id: startID, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		edges, err := t.store.RelationshipsFor(ctx, current.id)
		if err != nil {
			return nil, fmt.Errorf("failed to load relationships for %s: %w", current.id, err)
		}

		for _, edge := range edges {
			if !seenEdges[edge.ID] {
				seenEdges[edge.ID] = true
				result.Relationships = append(result.Relationships, edge)
			}

			neighborID := edge.TargetID
			if neighborID == current.id {
				neighborID = edge.SourceID
			}
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true

			neighbor, err := t.store.GetEntity(ctx, neighborID)
			if err != nil {
				return nil, fmt.Errorf("failed to load entity %s: %w", neighborID, err)
			}
			if neighbor == nil {
				// Dangling edge; skip the node but keep the edge recorded.
				continue
			}

			result.Entities = append(result.Entities, neighbor)
			queue = append(queue, queueItem{id: neighborID, depth: current.depth + 1})
		}
	}

	return result, nil
}
