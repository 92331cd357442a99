// Package rank scores entities for relevance against a query and for
// recency, used to pick which entities earn a place in a bounded prompt.
package rank

import (
	"sort"
	"strings"
	"time"

	"github.com/lifectx/engine/pkg/store"
)

// Scoring weights. Calibrated for display ordering and greedy prompt
// selection, not for any notion of optimal context choice.
const (
	weightExactName    = 100.0
	weightNameWord     = 20.0
	weightDescWord     = 10.0
	weightDomainMatch  = 15.0
	recencyBonusDay    = 30.0
	recencyBonusWeek   = 15.0
	recencyBonusMonth  = 5.0
	recencyScoreFloor  = 0.3
	recencyWindowDays  = 30.0
	defaultTopEntities = 15
)

// domainKeywords maps each life domain to query words that indicate it.
var domainKeywords = map[store.Domain][]string{
	store.DomainWork:     {"work", "job", "office", "career", "meeting", "project", "deadline", "colleague"},
	store.DomainFamily:   {"family", "wife", "husband", "partner", "kids", "children", "parents", "home"},
	store.DomainSport:    {"sport", "training", "workout", "run", "running", "race", "gym", "match"},
	store.DomainPersonal: {"personal", "hobby", "friend", "friends", "travel", "reading"},
	store.DomainHealth:   {"health", "doctor", "sleep", "stress", "energy", "recovery", "sick"},
}

// Scored pairs an entity with its relevance score.
type Scored struct {
	Entity *store.Entity
	Score  float64
}

// RelevanceScore computes the query relevance of an entity at time now.
// A zero score means the entity should not be surfaced for this query.
func RelevanceScore(entity *store.Entity, query string, now time.Time) float64 {
	queryLower := strings.ToLower(query)
	nameLower := strings.ToLower(entity.Name)
	descLower := strings.ToLower(entity.Description)
	words := queryWords(queryLower)

	var score float64

	if nameLower != "" && strings.Contains(queryLower, nameLower) {
		score += weightExactName
	}
	for _, w := range words {
		if strings.Contains(nameLower, w) {
			score += weightNameWord
		}
		if descLower != "" && strings.Contains(descLower, w) {
			score += weightDescWord
		}
	}
	if domainMatches(entity.Domain, words) {
		score += weightDomainMatch
	}
	score += recencyBonus(entity.LastMentioned, now)

	return score
}

// recencyBonus rewards recently mentioned entities: 30 within a day,
// 15 within a week, 5 within a month, else nothing.
func recencyBonus(lastMentioned *time.Time, now time.Time) float64 {
	if lastMentioned == nil {
		return 0
	}
	elapsed := now.Sub(*lastMentioned)
	switch {
	case elapsed <= 24*time.Hour:
		return recencyBonusDay
	case elapsed <= 7*24*time.Hour:
		return recencyBonusWeek
	case elapsed <= 30*24*time.Hour:
		return recencyBonusMonth
	default:
		return 0
	}
}

// RecencyScore is the query-independent ordering score: linear falloff over
// 30 days with a floor of 0.3 so old entities stay visible, just deprioritized.
func RecencyScore(lastMentioned *time.Time, now time.Time) float64 {
	if lastMentioned == nil {
		return recencyScoreFloor
	}
	days := now.Sub(*lastMentioned).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	score := 1.0 - days/recencyWindowDays
	if score < recencyScoreFloor {
		return recencyScoreFloor
	}
	return score
}

// TopRelevant returns up to limit entities with a positive relevance score,
// highest first. Ties keep the input order (stable sort).
func TopRelevant(entities []*store.Entity, query string, limit int, now time.Time) []Scored {
	if limit <= 0 {
		limit = defaultTopEntities
	}

	scored := make([]Scored, 0, len(entities))
	for _, e := range entities {
		s := RelevanceScore(e, query, now)
		if s <= 0 {
			continue
		}
		scored = append(scored, Scored{Entity: e, Score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// queryWords splits a lowercased query into words worth matching,
// dropping short stopword-like tokens.
func queryWords(queryLower string) []string {
	fields := strings.FieldsFunc(queryLower, func(r rune) bool {
		return !isWordRune(r)
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			words = append(words, f)
		}
	}
	return words
}

func isWordRune(r rune) bool {
	return r == '-' || r == '\'' ||
		(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127
}

func domainMatches(domain store.Domain, words []string) bool {
	keywords, ok := domainKeywords[domain]
	if !ok {
		return false
	}
	for _, w := range words {
		for _, k := range keywords {
			if w == k {
				return true
			}
		}
	}
	return false
}
