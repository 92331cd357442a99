package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lifectx/engine/pkg/conversation"
	"github.com/lifectx/engine/pkg/llm"
	"github.com/lifectx/engine/pkg/metrics"
	"github.com/lifectx/engine/pkg/rank"
	"github.com/lifectx/engine/pkg/reference"
	"github.com/lifectx/engine/pkg/signal"
)

const maxReferenceResults = 3

// signalLookback bounds how far back signal sources are queried per turn.
const signalLookback = 24 * time.Hour

const assistantPersona = `You are a personal assistant with long-term memory of the user's life context.
Ground your answers in the known context below when it is relevant. Never invent facts about the user.
Be concise and direct.`

// RespondToTurn runs one conversational turn: the user message is persisted,
// the history is compacted to budget, relevant entities and references are
// gathered into the system prompt, and the model response streams through
// handlers. The assistant message is persisted when the stream completes.
func (e *Engine) RespondToTurn(ctx context.Context, threadID, userText string, handlers llm.StreamHandlers) (llm.CancelFunc, error) {
	op := metrics.OpRespond
	t := e.startOp(op)
	start := time.Now()

	now := time.Now().UTC()
	if err := e.threads.AppendMessage(ctx, threadID, uuid.New().String(), llm.RoleUser, userText, now); err != nil {
		e.metrics.RecordError(ctx, op, string(Classify(err)))
		t.end(ctx, err)
		return nil, opError(op, err)
	}

	prepared, err := e.prepareThread(ctx, t, threadID)
	if err != nil {
		e.metrics.RecordError(ctx, op, string(Classify(err)))
		t.end(ctx, err)
		return nil, opError(op, err)
	}

	rs := t.span("rank")
	scored, err := e.RelevantEntities(ctx, userText)
	if err != nil {
		rs.finish(err, nil)
		e.metrics.RecordError(ctx, op, string(Classify(err)))
		t.end(ctx, err)
		return nil, err
	}
	rs.finish(nil, map[string]int64{"entities": int64(len(scored))})

	references := e.gatherReferences(ctx, userText)
	signals := e.gatherSignals(ctx)

	systemPrompt := buildSystemPrompt(scored, references, signals)

	messages := make([]llm.Message, 0, len(prepared.Messages))
	for _, m := range prepared.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	wrapped := llm.StreamHandlers{
		OnDelta: handlers.OnDelta,
		OnEnd: func(full string) {
			// Persist with a detached context: the turn's context may be
			// cancelled right after the stream ends.
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.threads.AppendMessage(saveCtx, threadID, uuid.New().String(), llm.RoleAssistant, full, time.Now().UTC()); err != nil {
				e.logger.Error("failed to persist assistant message", zap.String("thread", threadID), zap.Error(err))
			}
			e.metrics.RecordOperation(saveCtx, op, "success", time.Since(start).Milliseconds())
			t.end(saveCtx, nil)
			if handlers.OnEnd != nil {
				handlers.OnEnd(full)
			}
		},
		OnError: func(err error) {
			e.metrics.RecordError(ctx, op, string(Classify(err)))
			t.end(context.Background(), err)
			if handlers.OnError != nil {
				handlers.OnError(err)
			}
		},
	}

	cancel, err := e.llm.Stream(ctx, messages, wrapped, llm.CompleteOptions{System: systemPrompt})
	if err != nil {
		e.metrics.RecordError(ctx, op, string(Classify(err)))
		t.end(ctx, err)
		return nil, opError(op, err)
	}
	return cancel, nil
}

// prepareThread loads the thread history, compacts it to budget and persists
// an advanced summary boundary.
func (e *Engine) prepareThread(ctx context.Context, t *opTrace, threadID string) (*conversation.Prepared, error) {
	stored, err := e.threads.Messages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	summary, upTo, err := e.threads.Summary(ctx, threadID)
	if err != nil {
		return nil, err
	}

	history := make([]conversation.Message, 0, len(stored))
	for _, m := range stored {
		history = append(history, conversation.Message{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	cs := t.span("summarize")
	prepared, err := e.compactor.PrepareContext(ctx, history, summary, upTo)
	if err != nil {
		cs.finish(err, nil)
		return nil, err
	}
	cs.finish(nil, map[string]int64{
		"estimatedTokens": int64(prepared.EstimatedTokens),
		"messages":        int64(len(prepared.Messages)),
	})

	// A failed summarization leaves a marker in prepared.Summary for this
	// turn's prompt; only a real summary is durable.
	if !prepared.SummarizeFailed && (prepared.SummaryUpTo > upTo || prepared.Summary != summary) {
		if err := e.threads.UpdateSummary(ctx, threadID, prepared.Summary, prepared.SummaryUpTo); err != nil {
			// The prepared context is still usable this turn.
			e.logger.Warn("failed to persist thread summary", zap.String("thread", threadID), zap.Error(err))
		}
	}

	return prepared, nil
}

// gatherReferences searches registered reference plugins when the query asks
// for stored material. Lookup failures degrade to no references.
func (e *Engine) gatherReferences(ctx context.Context, query string) []reference.SearchResult {
	entities, err := e.entities.ListEntities(ctx)
	if err != nil {
		e.logger.Warn("entity load for reference trigger failed", zap.Error(err))
		return nil
	}
	if !reference.ShouldSearch(query, entities) {
		return nil
	}

	searcher, ok := e.registry.Searcher("notes")
	if !ok {
		return nil
	}
	results, err := searcher.Search(ctx, query, reference.SearchOptions{Limit: maxReferenceResults})
	if err != nil {
		e.logger.Warn("reference search failed", zap.Error(err))
		return nil
	}
	return results
}

// gatherSignals syncs recent signals from all registered sources. A failing
// source is skipped, not fatal.
func (e *Engine) gatherSignals(ctx context.Context) []signal.Signal {
	sources := e.registry.SignalSources()
	if len(sources) == 0 {
		return nil
	}

	since := time.Now().Add(-signalLookback)
	var all []signal.Signal
	for _, src := range sources {
		signals, err := src.Sync(ctx, &since)
		if err != nil {
			e.logger.Warn("signal sync failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		all = append(all, signals...)
	}
	return all
}

// buildSystemPrompt assembles the persona, ranked context, references and
// capacity signals into one system message.
func buildSystemPrompt(scored []rank.Scored, references []reference.SearchResult, signals []signal.Signal) string {
	var b strings.Builder
	b.WriteString(assistantPersona)

	if len(scored) > 0 {
		b.WriteString("\n\nKnown context about the user:\n")
		for _, s := range scored {
			entity := s.Entity
			fmt.Fprintf(&b, "- %s (%s", entity.Name, entity.Type)
			if entity.Domain != "" {
				fmt.Fprintf(&b, ", %s", entity.Domain)
			}
			b.WriteString(")")
			if entity.Description != "" {
				fmt.Fprintf(&b, ": %s", entity.Description)
			}
			if rel, ok := entity.Metadata["relationship"].(string); ok && rel != "" {
				fmt.Fprintf(&b, " [%s of the user]", rel)
			}
			b.WriteString("\n")
		}
	}

	if len(references) > 0 {
		b.WriteString("\nRelevant notes from the user's own records:\n")
		for _, r := range references {
			if r.Title != "" {
				fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Content)
			} else {
				fmt.Fprintf(&b, "- %s\n", r.Content)
			}
		}
	}

	if impact := totalCapacityImpact(signals); impact != 0 {
		fmt.Fprintf(&b, "\nRecent external signals suggest a capacity change of %+.1f; factor the user's current capacity into suggestions.\n", impact)
	}

	return b.String()
}

func totalCapacityImpact(signals []signal.Signal) float64 {
	total := 0.0
	for _, s := range signals {
		total += s.CapacityImpact
	}
	return total
}
