package store

import (
	"context"
	"errors"
	"time"
)

// ErrEntityNotFound indicates that no entity was found for the given criteria.
var ErrEntityNotFound = errors.New("entity not found")

// ErrMemoryNotFound indicates that no memory was found for the given id.
var ErrMemoryNotFound = errors.New("memory not found")

// ErrThreadNotFound indicates that no thread was found for the given id.
var ErrThreadNotFound = errors.New("thread not found")

// ErrSummaryRegression indicates an attempt to move a thread's summary
// boundary backwards. The boundary is monotonically non-decreasing: messages
// already folded into the summary are never re-summarized from scratch.
var ErrSummaryRegression = errors.New("summary boundary may not move backwards")

// EntityStore defines storage operations for entities and their relationships.
type EntityStore interface {
	// CreateEntity adds a new entity. Name must be non-empty; focus entities
	// are forced to PendingConfirmation regardless of the caller's flag.
	CreateEntity(ctx context.Context, entity *Entity) error

	// GetEntity retrieves an entity by id.
	// Returns (nil, nil) if the entity is not found (no error).
	GetEntity(ctx context.Context, id string) (*Entity, error)

	// FindEntitiesByName searches entities by name, case-insensitive.
	// Results are ordered deterministically (created_at, then id).
	FindEntitiesByName(ctx context.Context, name string) ([]*Entity, error)

	// ListEntities returns all entities ordered by creation time.
	ListEntities(ctx context.Context) ([]*Entity, error)

	// TouchMention sets last_mentioned to now for the given entity.
	TouchMention(ctx context.Context, id string) error

	// ConfirmEntity clears the pending-confirmation flag after user approval.
	ConfirmEntity(ctx context.Context, id string) error

	// DeleteEntity removes an entity and its incident relationships.
	// Only ever called on explicit user action.
	DeleteEntity(ctx context.Context, id string) error

	// UpsertRelationship creates a relationship with weight = weightDelta or
	// increments the weight of the existing row by weightDelta. Symmetric
	// relation types are keyed by the unordered endpoint pair.
	UpsertRelationship(ctx context.Context, sourceID, targetID string, typ RelationType, weightDelta float64) (*Relationship, error)

	// RelationshipsFor returns all relationships incident to an entity,
	// incoming and outgoing.
	RelationshipsFor(ctx context.Context, entityID string) ([]*Relationship, error)

	// EntityCount returns the total number of entities.
	EntityCount(ctx context.Context) (int64, error)
}

// MemoryStore defines storage operations for extracted memories.
type MemoryStore interface {
	// AddMemory creates a new memory record.
	AddMemory(ctx context.Context, memory *Memory) error

	// GetMemory retrieves a memory by id. Returns (nil, nil) if not found.
	GetMemory(ctx context.Context, id string) (*Memory, error)

	// ListMemories returns memories ordered by creation time descending,
	// up to limit (0 means no limit).
	ListMemories(ctx context.Context, limit int) ([]*Memory, error)

	// MemoriesForEntity returns memories that reference the given entity.
	MemoriesForEntity(ctx context.Context, entityID string) ([]*Memory, error)

	// TouchMemoryAccess increments access tracking for a memory.
	// Importance is never changed by access.
	TouchMemoryAccess(ctx context.Context, id string) error

	// DeleteMemory removes a memory.
	DeleteMemory(ctx context.Context, id string) error

	// MemoryCount returns the total number of memories.
	MemoryCount(ctx context.Context) (int64, error)
}

// ThreadStore defines storage operations for conversation threads.
type ThreadStore interface {
	// CreateThread creates a new empty thread.
	CreateThread(ctx context.Context, id, title string) error

	// AppendMessage appends a message to a thread's ordered sequence.
	AppendMessage(ctx context.Context, threadID, messageID, role, content string, at time.Time) error

	// Messages returns the thread's messages in insertion order.
	Messages(ctx context.Context, threadID string) ([]ThreadMessage, error)

	// Summary returns the thread's stored summary and boundary index.
	Summary(ctx context.Context, threadID string) (summary string, upTo int, err error)

	// UpdateSummary stores a new summary covering messages [0, upTo).
	// Returns ErrSummaryRegression if upTo is lower than the stored boundary.
	UpdateSummary(ctx context.Context, threadID, summary string, upTo int) error
}

// ThreadMessage is a stored conversation message.
type ThreadMessage struct {
	ID        string
	ThreadID  string
	Role      string
	Content   string
	CreatedAt time.Time
}
