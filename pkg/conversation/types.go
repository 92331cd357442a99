// Package conversation provides conversation units and the context
// compactor that keeps outbound prompts within a token budget.
package conversation

import "time"

// Message is a single conversational message.
type Message struct {
	ID        string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Thread is an ordered message sequence with an optional rolling summary.
// SummaryUpTo marks how many leading messages have been folded into the
// summary; it never decreases.
type Thread struct {
	ID          string
	Title       string
	Messages    []Message
	Summary     string
	SummaryUpTo int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
