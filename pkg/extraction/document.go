package extraction

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/lifectx/engine/pkg/llm"
	"github.com/lifectx/engine/pkg/store"
)

// documentExtractionPrompt is the Stage 1 prompt. The enums and rules below
// are part of the extraction contract; keep them in sync with the schema
// types in schemas.go.
const documentExtractionPrompt = `You are building a personal life-context knowledge graph from a document.

Document name: %s

Analyze the full document and return:
- summary: 2-4 sentences describing what the document covers
- domains: the life areas covered, from [work, family, sport, personal, health]
- entities: people, projects, companies, events, goals and focus themes worth tracking
- topics_not_covered: life areas the document says nothing about

Rules for entities:
- Only extract an entity if its name appears verbatim in the document. Generic references like "my wife" or "a startup" with no name must NOT produce an entity.
- type is one of [person, project, company, event, goal, focus, concept, domain]
- domain is one of [work, family, sport, personal, health]
- relationship: for people, their relationship to the author when stated ("wife", "manager")
- A goal is an explicit, named desired outcome. Derive priority from the language: "my main goal" is critical, plain statements are active, "maybe someday" is background. Include a date when one is stated.
- A focus is a cross-cutting theme you infer from multiple statements, never a single quoted phrase. Every focus must have needs_confirmation set to true.

Return ONLY valid JSON:
{"summary": "...", "domains": ["..."], "entities": [{"name": "...", "type": "...", "domain": "...", "description": "...", "relationship": "...", "priority": "...", "date": "...", "needs_confirmation": false}], "topics_not_covered": ["..."]}`

// DocumentExtraction is the Stage 1 result.
type DocumentExtraction struct {
	Summary          string
	Domains          []store.Domain
	Entities         []EntityCandidate
	TopicsNotCovered []string
}

// DocumentExtractor runs whole-document extraction.
type DocumentExtractor struct {
	llm         llm.Client
	logger      *zap.Logger
	temperature float32
}

// NewDocumentExtractor creates a document extractor.
func NewDocumentExtractor(client llm.Client, logger *zap.Logger) *DocumentExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentExtractor{llm: client, logger: logger, temperature: 0.2}
}

// Extract analyzes a whole document (no truncation) and returns candidates.
// On model failure or unparsable output the error is returned as-is; the
// caller owns the cold-start fallback.
func (e *DocumentExtractor) Extract(ctx context.Context, text, filenameHint string) (*DocumentExtraction, error) {
	if strings.TrimSpace(text) == "" {
		return &DocumentExtraction{}, nil
	}
	if filenameHint == "" {
		filenameHint = "untitled"
	}

	prompt := fmt.Sprintf(documentExtractionPrompt, filenameHint)

	var raw documentSchema
	if err := e.llm.Extract(ctx, prompt, text, &raw, llm.ExtractOptions{Temperature: e.temperature}); err != nil {
		return nil, fmt.Errorf("document extraction failed: %w", err)
	}

	result := &DocumentExtraction{
		Summary:          strings.TrimSpace(raw.Summary),
		Domains:          validDomains(raw.Domains),
		TopicsNotCovered: raw.TopicsNotCovered,
	}

	for _, candidate := range raw.Entities {
		name := strings.TrimSpace(candidate.Name)
		if name == "" {
			continue
		}

		entityType := normalizeEntityType(candidate.Type, name, e.logger)

		// The model is instructed to only emit verbatim names; enforce it
		// again here since the gate cannot rely on model compliance alone.
		// Focus themes are exempt: their names are synthesized across
		// statements and never appear verbatim, and the mandatory
		// confirmation gate covers them instead.
		if entityType != store.EntityFocus {
			if !containsVerbatim(text, name) {
				e.logger.Debug("dropping non-verbatim entity candidate", zap.String("name", name))
				continue
			}
			if genericReference(text, name) {
				e.logger.Debug("dropping generic entity candidate", zap.String("name", name))
				continue
			}
		}

		result.Entities = append(result.Entities, EntityCandidate{
			Name:         name,
			Type:         entityType,
			Domain:       normalizeDomain(candidate.Domain),
			Description:  strings.TrimSpace(candidate.Description),
			Relationship: strings.TrimSpace(candidate.Relationship),
			Priority:     normalizePriority(entityType, candidate.Priority),
			TargetDate:   strings.TrimSpace(candidate.Date),
			Confidence:   1.0,
			Disposition:  dispositionFor(entityType, candidate.NeedsConfirmation),
		})
	}

	return result, nil
}

// containsVerbatim checks case-insensitive verbatim presence of name in text.
func containsVerbatim(text, name string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(name))
}

// genericReference reports whether every occurrence of a single-word name in
// the text is immediately preceded by an article or possessive ("a startup",
// "my wife"), which marks a generic reference rather than a proper name.
func genericReference(text, name string) bool {
	if strings.ContainsRune(strings.TrimSpace(name), ' ') {
		return false
	}

	determiners := map[string]bool{
		"a": true, "an": true, "the": true,
		"my": true, "our": true, "his": true, "her": true, "their": true,
		"some": true,
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	target := strings.ToLower(name)

	found := false
	for i, w := range words {
		if w != target {
			continue
		}
		found = true
		if i == 0 || !determiners[words[i-1]] {
			return false
		}
	}
	return found
}

// normalizeEntityType coerces unknown types to concept, logging the original.
func normalizeEntityType(raw, name string, logger *zap.Logger) store.EntityType {
	t := store.EntityType(strings.ToLower(strings.TrimSpace(raw)))
	if !store.ValidEntityTypes[t] {
		logger.Debug("unrecognized entity type, normalizing to concept",
			zap.String("name", name), zap.String("type", raw))
		return store.EntityConcept
	}
	return t
}

// normalizeDomain returns the domain if valid, else empty.
func normalizeDomain(raw string) store.Domain {
	d := store.Domain(strings.ToLower(strings.TrimSpace(raw)))
	if !store.ValidDomains[d] {
		return ""
	}
	return d
}

// normalizePriority keeps priority for goals only, defaulting to active.
func normalizePriority(entityType store.EntityType, raw string) GoalPriority {
	if entityType != store.EntityGoal {
		return ""
	}
	p := GoalPriority(strings.ToLower(strings.TrimSpace(raw)))
	if !ValidGoalPriorities[p] {
		return PriorityActive
	}
	return p
}

func validDomains(raw []string) []store.Domain {
	var domains []store.Domain
	seen := make(map[store.Domain]bool)
	for _, r := range raw {
		d := normalizeDomain(r)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		domains = append(domains, d)
	}
	return domains
}
