package extraction

import (
	"regexp"
	"strings"

	"github.com/lifectx/engine/pkg/store"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeName lowercases and collapses whitespace for name comparison.
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return whitespaceRe.ReplaceAllString(name, " ")
}

// matchesExistingEntity reports whether a candidate name collides with a
// known entity, case-insensitive, substring in either direction. Substring
// matching is deliberately loose (short names will false-positive); the
// extraction prompt carries the existing list too, this is the second line
// of defense.
func matchesExistingEntity(name string, existing []*store.Entity) bool {
	candidate := normalizeName(name)
	if candidate == "" {
		return true
	}
	for _, e := range existing {
		known := normalizeName(e.Name)
		if known == "" {
			continue
		}
		if strings.Contains(candidate, known) || strings.Contains(known, candidate) {
			return true
		}
	}
	return false
}

// matchesExistingMemory reports whether candidate content closely matches an
// existing memory.
func matchesExistingMemory(content string, existing []*store.Memory) bool {
	for _, m := range existing {
		if contentSimilar(content, m.Content) {
			return true
		}
	}
	return false
}

// contentSimilar checks two memory contents for near-duplication: substring
// containment with comparable length, or heavy word overlap.
func contentSimilar(a, b string) bool {
	a = normalizeContent(a)
	b = normalizeContent(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len(a) < 10 || len(b) < 10 {
		return false
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter)/float64(longer) >= 0.8
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	wordSet := make(map[string]bool)
	for _, w := range wordsA {
		if len(w) > 3 {
			wordSet[w] = true
		}
	}
	matches := 0
	for _, w := range wordsB {
		if len(w) > 3 && wordSet[w] {
			matches++
		}
	}

	avgWords := (len(wordsA) + len(wordsB)) / 2
	if avgWords == 0 {
		return false
	}
	return float64(matches)/float64(avgWords) >= 0.7
}

func normalizeContent(content string) string {
	content = strings.ToLower(strings.TrimSpace(content))
	content = whitespaceRe.ReplaceAllString(content, " ")
	return strings.TrimRight(content, ".,!?;:")
}
