package reference

import (
	"strings"

	"github.com/lifectx/engine/pkg/store"
)

// explicitPhrases trigger a reference search regardless of other context.
var explicitPhrases = []string{
	"my notes",
	"my note",
	"i wrote",
	"i noted",
	"look up",
	"check my",
	"in my journal",
	"what did i write",
}

// topicalKeywords mark queries that are about recalling stored material.
var topicalKeywords = []string{
	"remember", "wrote", "noted", "saved", "documented", "recorded",
}

// ShouldSearch decides whether a query warrants a reference lookup:
// either an explicit notes-style phrase, or a recall keyword together with
// a known entity name appearing in the query.
func ShouldSearch(query string, entities []*store.Entity) bool {
	queryLower := strings.ToLower(query)

	for _, phrase := range explicitPhrases {
		if strings.Contains(queryLower, phrase) {
			return true
		}
	}

	topical := false
	for _, kw := range topicalKeywords {
		if strings.Contains(queryLower, kw) {
			topical = true
			break
		}
	}
	if !topical {
		return false
	}

	for _, e := range entities {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name != "" && strings.Contains(queryLower, name) {
			return true
		}
	}
	return false
}
