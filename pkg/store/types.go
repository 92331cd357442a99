// Package store provides storage for the life-context knowledge graph.
package store

import (
	"time"
)

// EntityType classifies a knowledge graph entity.
type EntityType string

const (
	EntityPerson  EntityType = "person"
	EntityProject EntityType = "project"
	EntityCompany EntityType = "company"
	EntityEvent   EntityType = "event"
	EntityGoal    EntityType = "goal"
	EntityFocus   EntityType = "focus"
	EntityConcept EntityType = "concept"
	EntityDomain  EntityType = "domain"
)

// ValidEntityTypes is the closed set of entity types accepted by the store
// and by the extraction schemas.
var ValidEntityTypes = map[EntityType]bool{
	EntityPerson:  true,
	EntityProject: true,
	EntityCompany: true,
	EntityEvent:   true,
	EntityGoal:    true,
	EntityFocus:   true,
	EntityConcept: true,
	EntityDomain:  true,
}

// Domain is a life-area tag on entities and memories.
type Domain string

const (
	DomainWork     Domain = "work"
	DomainFamily   Domain = "family"
	DomainSport    Domain = "sport"
	DomainPersonal Domain = "personal"
	DomainHealth   Domain = "health"
)

// ValidDomains is the closed set of life domains.
var ValidDomains = map[Domain]bool{
	DomainWork:     true,
	DomainFamily:   true,
	DomainSport:    true,
	DomainPersonal: true,
	DomainHealth:   true,
}

// Entity represents a named person, project, company, event, goal, focus,
// concept or domain tracked in the knowledge graph.
type Entity struct {
	ID          string
	Type        EntityType
	Name        string
	Domain      Domain
	Description string
	Icon        string
	Metadata    map[string]interface{}
	// PendingConfirmation is true for entities that were proposed but not yet
	// approved by the user. Focus entities are always created pending.
	PendingConfirmation bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastMentioned       *time.Time
}

// RelationType classifies a relationship between two entities.
type RelationType string

const (
	RelationBelongsTo     RelationType = "belongs_to"
	RelationRelatedTo     RelationType = "related_to"
	RelationMentionedWith RelationType = "mentioned_with"
	RelationParentOf      RelationType = "parent_of"
)

// Symmetric reports whether the relation applies to an unordered pair.
// Symmetric relations are stored as a single row with canonical endpoint order.
func (r RelationType) Symmetric() bool {
	return r == RelationMentionedWith || r == RelationRelatedTo
}

// Relationship is a weighted edge between two entities.
// Weight only ever increases through repeated co-occurrence.
type Relationship struct {
	ID        string
	SourceID  string
	TargetID  string
	Type      RelationType
	Weight    float64
	CreatedAt time.Time
}

// MemorySource identifies where a memory was extracted from.
type MemorySource string

const (
	SourceThread  MemorySource = "thread"
	SourceCapture MemorySource = "capture"
	SourceUpload  MemorySource = "upload"
)

// Memory is a short extracted fact, preference, decision, event or insight.
// EntityIDs are weak references: deleting an entity orphans the reference,
// it never cascades into memories.
type Memory struct {
	ID         string
	Content    string
	SourceType MemorySource
	SourceID   string
	EntityIDs  []string
	// Importance reflects extraction-time confidence and category.
	// It is fixed at creation; later usage is tracked via AccessCount.
	Importance     float64
	Tags           []string
	CreatedAt      time.Time
	ExpiresAt      *time.Time
	AccessCount    int
	LastAccessedAt *time.Time
}
