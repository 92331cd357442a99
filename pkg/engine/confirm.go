package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lifectx/engine/pkg/extraction"
	"github.com/lifectx/engine/pkg/metrics"
	"github.com/lifectx/engine/pkg/store"
)

// ConfirmedBatch is the set of candidates the user approved. Extraction
// never writes to the store; this is the only path from candidates into
// the graph.
type ConfirmedBatch struct {
	Entities []extraction.EntityCandidate
	Memories []extraction.MemoryCandidate

	// SourceType and SourceID attribute the resulting memories to their
	// origin (thread, capture or upload).
	SourceType store.MemorySource
	SourceID   string
}

// ConfirmResult reports what a confirmed batch produced.
type ConfirmResult struct {
	// Entities holds every entity the batch touched, created or existing.
	Entities []*store.Entity
	Memories []*store.Memory
}

// ConfirmCandidates persists an approved batch: entities are created or
// re-touched, memories are attributed to their entities, and every pair of
// entities mentioned together gains co-occurrence weight. Candidates that
// still carry NeedsConfirmation are assumed individually approved by the
// caller; focus entities get their pending flag cleared here.
func (e *Engine) ConfirmCandidates(ctx context.Context, batch ConfirmedBatch) (*ConfirmResult, error) {
	op := metrics.OpConfirm
	t := e.startOp(op)
	start := time.Now()

	result := &ConfirmResult{}
	byName := make(map[string]*store.Entity)

	ws := t.span("write-store")
	for _, cand := range batch.Entities {
		entity, err := e.resolveOrCreate(ctx, cand)
		if err != nil {
			ws.finish(err, nil)
			e.metrics.RecordError(ctx, op, string(Classify(err)))
			t.end(ctx, err)
			return nil, opError(op, err)
		}
		byName[strings.ToLower(entity.Name)] = entity
		result.Entities = append(result.Entities, entity)
	}

	for _, cand := range batch.Memories {
		memory := &store.Memory{
			Content:    cand.Content,
			SourceType: batch.SourceType,
			SourceID:   batch.SourceID,
			Importance: cand.Importance,
			Tags:       cand.Tags,
			EntityIDs:  e.resolveMemoryEntities(ctx, cand.EntityNames, byName),
		}
		if err := e.memories.AddMemory(ctx, memory); err != nil {
			ws.finish(err, nil)
			e.metrics.RecordError(ctx, op, string(Classify(err)))
			t.end(ctx, err)
			return nil, opError(op, err)
		}
		result.Memories = append(result.Memories, memory)
	}

	ids := make([]string, 0, len(result.Entities))
	for _, entity := range result.Entities {
		ids = append(ids, entity.ID)
	}
	if err := e.cooccur.Record(ctx, ids); err != nil {
		// Edge weights are an enhancement over the entities themselves;
		// the batch already persisted, so log and carry on.
		e.logger.Warn("co-occurrence update failed", zap.Error(err))
	}
	ws.finish(nil, map[string]int64{
		"entities": int64(len(result.Entities)),
		"memories": int64(len(result.Memories)),
	})

	e.updateStorageCounts(ctx)
	e.metrics.RecordOperation(ctx, op, "success", time.Since(start).Milliseconds())
	t.end(ctx, nil)
	return result, nil
}

// resolveOrCreate finds an existing entity for the candidate's name or
// creates a new one. Matching an existing entity counts as a mention.
func (e *Engine) resolveOrCreate(ctx context.Context, cand extraction.EntityCandidate) (*store.Entity, error) {
	existing, err := e.entities.FindEntitiesByName(ctx, cand.Name)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		entity := existing[0]
		if err := e.entities.TouchMention(ctx, entity.ID); err != nil {
			return nil, err
		}
		if entity.PendingConfirmation {
			if err := e.entities.ConfirmEntity(ctx, entity.ID); err != nil {
				return nil, err
			}
			entity.PendingConfirmation = false
		}
		return entity, nil
	}

	entity := &store.Entity{
		Type:        cand.Type,
		Name:        cand.Name,
		Domain:      cand.Domain,
		Description: cand.Description,
		Metadata:    entityMetadata(cand),
	}
	if err := e.entities.CreateEntity(ctx, entity); err != nil {
		return nil, err
	}
	// The store forces focus entities to pending on create; the user just
	// approved this batch, so clear it.
	if entity.PendingConfirmation {
		if err := e.entities.ConfirmEntity(ctx, entity.ID); err != nil {
			return nil, err
		}
		entity.PendingConfirmation = false
	}
	return entity, nil
}

func entityMetadata(cand extraction.EntityCandidate) map[string]interface{} {
	meta := make(map[string]interface{})
	if cand.Relationship != "" {
		meta["relationship"] = cand.Relationship
	}
	if cand.Priority != "" {
		meta["priority"] = string(cand.Priority)
	}
	if cand.TargetDate != "" {
		meta["target_date"] = cand.TargetDate
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// resolveMemoryEntities maps candidate entity names to ids, preferring
// entities from the same batch, then the store. Unresolvable names are
// dropped: memory-entity references are weak by design.
func (e *Engine) resolveMemoryEntities(ctx context.Context, names []string, byName map[string]*store.Entity) []string {
	var ids []string
	for _, name := range names {
		if entity, ok := byName[strings.ToLower(name)]; ok {
			ids = append(ids, entity.ID)
			continue
		}
		found, err := e.entities.FindEntitiesByName(ctx, name)
		if err != nil || len(found) == 0 {
			continue
		}
		ids = append(ids, found[0].ID)
	}
	return ids
}

// updateStorageCounts refreshes the storage gauges; failures are ignored.
func (e *Engine) updateStorageCounts(ctx context.Context) {
	if n, err := e.entities.EntityCount(ctx); err == nil {
		e.metrics.SetStorageCount(ctx, "entities", n)
	}
	if n, err := e.memories.MemoryCount(ctx); err == nil {
		e.metrics.SetStorageCount(ctx, "memories", n)
	}
}
