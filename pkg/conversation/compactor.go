package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lifectx/engine/pkg/llm"
)

// Compaction defaults. Budgets are calibrated against one model family's
// context window and belong in configuration, not code paths.
const (
	DefaultMinRecent          = 4
	DefaultTargetTokenBudget  = 100_000
	DefaultHardTokenBudget    = 150_000
	DefaultPerMessageOverhead = 4
	DefaultMinSummarizable    = 3
)

// summaryFailureMarker is appended to the carried summary when the
// summarization call fails, so older context degrades visibly instead of
// vanishing.
const summaryFailureMarker = "Some earlier messages could not be summarized."

const summarizePrompt = `Summarize the following conversation in the third person, in 2-5 sentences.
Capture the topics discussed, the people and things mentioned by name, any decisions made, and the emotional context.
Do not include greetings or pleasantries. Return only the summary text.`

// CompactorConfig holds compaction tuning knobs.
type CompactorConfig struct {
	// MinRecent is the number of trailing messages always kept verbatim.
	MinRecent int
	// TargetTokenBudget is the estimated-token threshold above which
	// compaction kicks in. It sits well below the hard context ceiling
	// because the estimate is a heuristic, not a tokenizer.
	TargetTokenBudget int
	// HardTokenBudget is the model's context ceiling, kept for reference
	// and for callers sizing their own additions to the prompt.
	HardTokenBudget int
	// PerMessageOverhead is the fixed estimated-token cost per message.
	PerMessageOverhead int
	// MinSummarizable is the smallest older-message count worth a
	// summarization call.
	MinSummarizable int
}

func (c *CompactorConfig) applyDefaults() {
	if c.MinRecent <= 0 {
		c.MinRecent = DefaultMinRecent
	}
	if c.TargetTokenBudget <= 0 {
		c.TargetTokenBudget = DefaultTargetTokenBudget
	}
	if c.HardTokenBudget <= 0 {
		c.HardTokenBudget = DefaultHardTokenBudget
	}
	if c.PerMessageOverhead <= 0 {
		c.PerMessageOverhead = DefaultPerMessageOverhead
	}
	if c.MinSummarizable <= 0 {
		c.MinSummarizable = DefaultMinSummarizable
	}
}

// Prepared is the compactor's output: the message sequence to send, ending
// with the true most recent messages verbatim.
type Prepared struct {
	Messages []Message
	// Summary is the rolling summary after this preparation (possibly the
	// unchanged existing one).
	Summary string
	// SummaryUpTo is the new summary boundary for the caller to persist.
	// Equal to the input boundary when nothing was folded in.
	SummaryUpTo int
	// WasCompacted is true when the returned sequence is not simply the
	// full history.
	WasCompacted bool
	// SummarizeFailed is true when the summarization call failed and
	// Summary carries the failure marker. The marker is for this turn's
	// prompt only; callers must not persist the summary when set.
	SummarizeFailed bool
	// EstimatedTokens is the heuristic token estimate of the input history.
	EstimatedTokens int
}

// Compactor reduces long histories to a summary plus recent messages.
type Compactor struct {
	llm    llm.Client
	cfg    CompactorConfig
	logger *zap.Logger
}

// NewCompactor creates a compactor that delegates summarization to client.
func NewCompactor(client llm.Client, cfg CompactorConfig, logger *zap.Logger) *Compactor {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compactor{llm: client, cfg: cfg, logger: logger}
}

// EstimateTokens estimates the token cost of a message as ceil(chars/4) plus
// a fixed per-message overhead. This is a cheap approximation, not a bound:
// callers must leave headroom against the hard budget.
func (c *Compactor) EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += (len(m.Content) + 3) / 4
		total += c.cfg.PerMessageOverhead
	}
	return total
}

// PrepareContext decides what subset of history fits the budget.
//
// The returned sequence always ends with the last MinRecent messages
// verbatim; summarization never erases near-term context. On summarization
// failure the compactor degrades by marking the summary rather than failing
// the turn.
func (c *Compactor) PrepareContext(ctx context.Context, history []Message, existingSummary string, summaryUpTo int) (*Prepared, error) {
	estimated := c.EstimateTokens(history)

	if summaryUpTo < 0 {
		summaryUpTo = 0
	}
	if summaryUpTo > len(history) {
		summaryUpTo = len(history)
	}

	// Too small to bother compacting.
	if len(history) <= c.cfg.MinRecent {
		return &Prepared{
			Messages:        history,
			Summary:         existingSummary,
			SummaryUpTo:     summaryUpTo,
			WasCompacted:    false,
			EstimatedTokens: estimated,
		}, nil
	}

	// Within budget: send the full history, prefixed by the existing
	// summary when one is carried.
	if estimated <= c.cfg.TargetTokenBudget {
		messages := history
		if existingSummary != "" {
			messages = prepend(summaryMessage(existingSummary), history)
		}
		return &Prepared{
			Messages:        messages,
			Summary:         existingSummary,
			SummaryUpTo:     summaryUpTo,
			WasCompacted:    false,
			EstimatedTokens: estimated,
		}, nil
	}

	recentStart := len(history) - c.cfg.MinRecent
	if summaryUpTo > recentStart {
		summaryUpTo = recentStart
	}
	older := history[summaryUpTo:recentStart]
	recent := history[recentStart:]

	// Summarizing a handful of messages wastes a model call; just truncate.
	if len(older) < c.cfg.MinSummarizable {
		messages := recent
		if existingSummary != "" {
			messages = prepend(summaryMessage(existingSummary), recent)
		}
		return &Prepared{
			Messages:        messages,
			Summary:         existingSummary,
			SummaryUpTo:     summaryUpTo,
			WasCompacted:    true,
			EstimatedTokens: estimated,
		}, nil
	}

	newSummary, ok := c.summarize(ctx, older, existingSummary)
	newUpTo := recentStart
	if !ok {
		// The failed stretch is represented by the marker for this turn,
		// but the boundary stays put so a later turn can retry it.
		newUpTo = summaryUpTo
	}

	return &Prepared{
		Messages:        prepend(summaryMessage(newSummary), recent),
		Summary:         newSummary,
		SummaryUpTo:     newUpTo,
		WasCompacted:    true,
		SummarizeFailed: !ok,
		EstimatedTokens: estimated,
	}, nil
}

// summarize folds older messages (plus any prior summary) into a fresh
// summary. Failure degrades to the prior summary with a marker appended.
func (c *Compactor) summarize(ctx context.Context, older []Message, existingSummary string) (string, bool) {
	var input strings.Builder
	if existingSummary != "" {
		input.WriteString("Previous summary: ")
		input.WriteString(existingSummary)
		input.WriteString("\n\n")
	}
	input.WriteString("Conversation:\n")
	for _, m := range older {
		fmt.Fprintf(&input, "%s: %s\n", m.Role, m.Content)
	}

	messages := []llm.Message{{Role: llm.RoleUser, Content: summarizePrompt + "\n\n" + input.String()}}
	summary, err := c.llm.Complete(ctx, messages, llm.CompleteOptions{Temperature: 0.3})
	if err != nil || strings.TrimSpace(summary) == "" {
		c.logger.Warn("summarization failed, carrying marker", zap.Error(err))
		if existingSummary != "" {
			return existingSummary + " " + summaryFailureMarker, false
		}
		return summaryFailureMarker, false
	}
	return strings.TrimSpace(summary), true
}

// summaryMessage renders a summary as a synthetic leading message.
func summaryMessage(summary string) Message {
	return Message{
		Role:    llm.RoleSystem,
		Content: "Summary of the conversation so far: " + summary,
	}
}

func prepend(head Message, tail []Message) []Message {
	out := make([]Message, 0, len(tail)+1)
	out = append(out, head)
	out = append(out, tail...)
	return out
}
