// Package extraction turns free text into confidence-gated entity and
// memory candidates for the external confirmation workflow.
package extraction

import (
	"github.com/lifectx/engine/pkg/store"
)

// GoalPriority grades how strongly a goal was stated.
type GoalPriority string

const (
	PriorityCritical   GoalPriority = "critical"
	PriorityActive     GoalPriority = "active"
	PriorityBackground GoalPriority = "background"
)

// ValidGoalPriorities is the closed set of goal priorities.
var ValidGoalPriorities = map[GoalPriority]bool{
	PriorityCritical:   true,
	PriorityActive:     true,
	PriorityBackground: true,
}

// Disposition states whether a candidate may enter the graph without review.
// Values are built through AutoApprove and RequireConfirmation only, so the
// focus rule (interpretive themes always need review) is enforced where
// candidates are constructed, not remembered at every call site.
type Disposition struct {
	needsConfirmation bool
	reason            string
}

// AutoApprove marks a candidate as safe to store once the batch is approved.
func AutoApprove() Disposition {
	return Disposition{}
}

// RequireConfirmation marks a candidate as needing individual user review.
func RequireConfirmation(reason string) Disposition {
	return Disposition{needsConfirmation: true, reason: reason}
}

// NeedsConfirmation reports whether individual review is required.
func (d Disposition) NeedsConfirmation() bool {
	return d.needsConfirmation
}

// Reason explains why review is required. Empty for auto-approvable.
func (d Disposition) Reason() string {
	return d.reason
}

// EntityCandidate is a proposed entity awaiting confirmation.
type EntityCandidate struct {
	Name        string
	Type        store.EntityType
	Domain      store.Domain
	Description string
	// Relationship to the user, when stated ("wife", "manager").
	Relationship string
	// Priority applies to goal candidates only.
	Priority GoalPriority
	// TargetDate is an optional goal date, as stated in the text.
	TargetDate string
	// Confidence in [0,1] as reported by the extraction call.
	Confidence  float64
	Disposition Disposition
}

// MemoryCandidate is a proposed memory awaiting confirmation.
type MemoryCandidate struct {
	Content string
	// Importance in [0,1], set at extraction time from confidence and
	// category. Never reinforced later.
	Importance  float64
	Tags        []string
	EntityNames []string
	Disposition Disposition
}

// dispositionFor derives the disposition for an entity candidate.
// Focus entities are cross-statement interpretations and always require
// confirmation, regardless of what the model claimed.
func dispositionFor(entityType store.EntityType, modelWantsConfirmation bool) Disposition {
	if entityType == store.EntityFocus {
		return RequireConfirmation("interpretive theme inferred across statements")
	}
	if modelWantsConfirmation {
		return RequireConfirmation("flagged by extraction")
	}
	return AutoApprove()
}
