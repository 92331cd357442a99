package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lifectx/engine/pkg/llm"
	"github.com/lifectx/engine/pkg/store"
)

// Turn extraction defaults. Both thresholds are empirical and configurable.
const (
	DefaultMinUserTextLength   = 15
	DefaultConfidenceThreshold = 0.6
)

// turnExtractionPrompt is the Stage 2 prompt. Existing entities and memories
// are embedded so the model avoids re-proposing known items; the post-filter
// enforces the same rule defensively.
const turnExtractionPrompt = `You maintain a personal life-context knowledge graph. Given one exchange between the user and the assistant, extract NEW entities and NEW memories only.

Known entities (do not re-extract these or close variants):
%s

Known memories (do not re-extract these or close variants):
%s

Rules:
- Only extract an entity if its name appears verbatim in the exchange. Generic references ("my wife", "a startup") must NOT produce an entity.
- type is one of [person, project, company, event, goal, focus, concept, domain]
- domain is one of [work, family, sport, personal, health]
- confidence is a number in [0,1]; be conservative, only report what the exchange clearly supports.
- A goal is an explicit desired outcome; priority is one of [critical, active, background] based on how strongly it was stated.
- A focus is a theme inferred across statements; every focus must have needs_confirmation true.
- Memories are short facts, preferences, decisions or events worth remembering, with importance in [0,1].

Return ONLY valid JSON:
{"entities": [{"name": "...", "type": "...", "domain": "...", "description": "...", "relationship": "...", "priority": "...", "confidence": 0.0, "needs_confirmation": false}], "memories": [{"content": "...", "importance": 0.0, "tags": ["..."], "entities": ["..."]}]}`

// TurnExtraction is the Stage 2 result: new candidates only.
type TurnExtraction struct {
	Entities []EntityCandidate
	Memories []MemoryCandidate
}

// TurnExtractorConfig holds the Stage 2 gates.
type TurnExtractorConfig struct {
	// MinUserTextLength short-circuits trivial exchanges without a model
	// call; turns this short carry no extractable content.
	MinUserTextLength int
	// ConfidenceThreshold silently discards entity candidates below it.
	ConfidenceThreshold float64
	Temperature         float32
}

func (c *TurnExtractorConfig) applyDefaults() {
	if c.MinUserTextLength <= 0 {
		c.MinUserTextLength = DefaultMinUserTextLength
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
}

// TurnExtractor runs conversational-turn extraction.
type TurnExtractor struct {
	llm    llm.Client
	cfg    TurnExtractorConfig
	logger *zap.Logger
}

// NewTurnExtractor creates a turn extractor.
func NewTurnExtractor(client llm.Client, cfg TurnExtractorConfig, logger *zap.Logger) *TurnExtractor {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnExtractor{llm: client, cfg: cfg, logger: logger}
}

// Extract produces new candidates from a single user/assistant exchange.
//
// Fail-closed: a model failure or unparsable response yields an empty
// extraction, never partial or guessed data. The error is logged, not
// returned, because empty output is the documented fallback.
func (e *TurnExtractor) Extract(ctx context.Context, userText, assistantText string, existingEntities []*store.Entity, existingMemories []*store.Memory) *TurnExtraction {
	empty := &TurnExtraction{Entities: []EntityCandidate{}, Memories: []MemoryCandidate{}}

	if len(strings.TrimSpace(userText)) < e.cfg.MinUserTextLength {
		return empty
	}

	prompt := fmt.Sprintf(turnExtractionPrompt,
		entityNameList(existingEntities),
		memoryContentList(existingMemories))

	exchange := fmt.Sprintf("User: %s\nAssistant: %s", userText, assistantText)

	var raw turnSchema
	if err := e.llm.Extract(ctx, prompt, exchange, &raw, llm.ExtractOptions{Temperature: e.cfg.Temperature}); err != nil {
		e.logger.Warn("turn extraction failed, returning empty candidates", zap.Error(err))
		return empty
	}

	result := &TurnExtraction{Entities: []EntityCandidate{}, Memories: []MemoryCandidate{}}
	sourceText := userText + "\n" + assistantText

	for _, candidate := range raw.Entities {
		name := strings.TrimSpace(candidate.Name)
		if name == "" {
			continue
		}
		if candidate.Confidence < e.cfg.ConfidenceThreshold {
			continue
		}
		entityType := normalizeEntityType(candidate.Type, name, e.logger)

		// Focus names are synthesized, never verbatim; the confirmation
		// gate covers them. The generic-reference check looks at the user's
		// wording only, so an assistant paraphrase ("the Volta launch")
		// cannot veto a name the user stated properly.
		if entityType != store.EntityFocus {
			if !containsVerbatim(sourceText, name) || genericReference(userText, name) {
				e.logger.Debug("dropping non-verbatim or generic candidate", zap.String("name", name))
				continue
			}
		}
		if matchesExistingEntity(name, existingEntities) {
			continue
		}

		result.Entities = append(result.Entities, EntityCandidate{
			Name:         name,
			Type:         entityType,
			Domain:       normalizeDomain(candidate.Domain),
			Description:  strings.TrimSpace(candidate.Description),
			Relationship: strings.TrimSpace(candidate.Relationship),
			Priority:     normalizePriority(entityType, candidate.Priority),
			Confidence:   clamp01(candidate.Confidence),
			Disposition:  dispositionFor(entityType, candidate.NeedsConfirmation),
		})
	}

	for _, candidate := range raw.Memories {
		content := strings.TrimSpace(candidate.Content)
		if content == "" {
			continue
		}
		if matchesExistingMemory(content, existingMemories) {
			continue
		}

		result.Memories = append(result.Memories, MemoryCandidate{
			Content:     content,
			Importance:  clamp01(candidate.Importance),
			Tags:        candidate.Tags,
			EntityNames: candidate.Entities,
			Disposition: AutoApprove(),
		})
	}

	return result
}

func entityNameList(entities []*store.Entity) string {
	if len(entities) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return strings.Join(names, ", ")
}

func memoryContentList(memories []*store.Memory) string {
	if len(memories) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, m := range memories {
		b.WriteString("- ")
		b.WriteString(truncate(m.Content, 120))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
