package store

import (
	"context"
	"fmt"
)

// CoOccurrenceBuilder strengthens mentioned_with relationships between
// entities confirmed from the same utterance.
type CoOccurrenceBuilder struct {
	store EntityStore
}

// NewCoOccurrenceBuilder creates a co-occurrence builder on top of a store.
func NewCoOccurrenceBuilder(entityStore EntityStore) *CoOccurrenceBuilder {
	return &CoOccurrenceBuilder{store: entityStore}
}

// Record upserts a mentioned_with relationship for every unordered pair in
// the batch, incrementing weight by 1 per pair. Quadratic in batch size,
// which is fine because confirmation batches are small.
func (b *CoOccurrenceBuilder) Record(ctx context.Context, entityIDs []string) error {
	ids := dedupeIDs(entityIDs)
	if len(ids) < 2 {
		return nil
	}

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if _, err := b.store.UpsertRelationship(ctx, ids[i], ids[j], RelationMentionedWith, 1.0); err != nil {
				return fmt.Errorf("failed to record co-occurrence (%s, %s): %w", ids[i], ids[j], err)
			}
		}
	}

	// A co-occurrence is a mention: refresh recency for the whole batch.
	for _, id := range ids {
		if err := b.store.TouchMention(ctx, id); err != nil {
			return fmt.Errorf("failed to touch mention for %s: %w", id, err)
		}
	}

	return nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
