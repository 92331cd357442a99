package rank

import (
	"testing"
	"time"

	"github.com/lifectx/engine/pkg/store"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestRecencyScoreNeverMentioned(t *testing.T) {
	now := time.Now()
	if got := RecencyScore(nil, now); got != 0.3 {
		t.Fatalf("RecencyScore(nil) = %f, want floor 0.3", got)
	}
}

func TestRecencyScoreJustMentioned(t *testing.T) {
	now := time.Now()
	got := RecencyScore(timePtr(now), now)
	if got < 0.99 || got > 1.0 {
		t.Fatalf("RecencyScore(now) = %f, want ~1.0", got)
	}
}

func TestRecencyScoreFloor(t *testing.T) {
	now := time.Now()
	old := now.Add(-90 * 24 * time.Hour)
	if got := RecencyScore(timePtr(old), now); got != 0.3 {
		t.Fatalf("RecencyScore(90 days ago) = %f, want floor 0.3", got)
	}
}

func TestRecencyScoreMonotonic(t *testing.T) {
	now := time.Now()
	prev := 2.0
	for days := 0; days <= 40; days += 5 {
		at := now.Add(-time.Duration(days) * 24 * time.Hour)
		score := RecencyScore(timePtr(at), now)
		if score > prev {
			t.Fatalf("score increased at %d days: %f > %f", days, score, prev)
		}
		if score < 0.3 {
			t.Fatalf("score below floor at %d days: %f", days, score)
		}
		prev = score
	}
}

func TestRelevanceScoreExactName(t *testing.T) {
	now := time.Now()
	entity := &store.Entity{Name: "Volta", Type: store.EntityProject}

	score := RelevanceScore(entity, "how is volta going?", now)

	// Exact name (100) plus the name containing the query word "volta" (20).
	if score != 120 {
		t.Fatalf("score = %f, want 120", score)
	}
}

func TestRelevanceScoreDescriptionAndDomain(t *testing.T) {
	now := time.Now()
	entity := &store.Entity{
		Name:        "Zuid Runners",
		Type:        store.EntityConcept,
		Domain:      store.DomainSport,
		Description: "running club, training three times a week",
	}

	score := RelevanceScore(entity, "when is training", now)

	// "training" in description (10) plus sport domain keyword match (15).
	if score != 25 {
		t.Fatalf("score = %f, want 25", score)
	}
}

func TestRelevanceScoreRecencyBonus(t *testing.T) {
	now := time.Now()
	base := &store.Entity{Name: "Volta", Domain: store.DomainWork}

	tests := []struct {
		name          string
		lastMentioned *time.Time
		wantBonus     float64
	}{
		{"never", nil, 0},
		{"today", timePtr(now.Add(-2 * time.Hour)), 30},
		{"this week", timePtr(now.Add(-3 * 24 * time.Hour)), 15},
		{"this month", timePtr(now.Add(-20 * 24 * time.Hour)), 5},
		{"long ago", timePtr(now.Add(-60 * 24 * time.Hour)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity := *base
			entity.LastMentioned = tt.lastMentioned
			score := RelevanceScore(&entity, "volta", now)
			want := 120 + tt.wantBonus
			if score != want {
				t.Errorf("score = %f, want %f", score, want)
			}
		})
	}
}

func TestTopRelevantExcludesZeroScores(t *testing.T) {
	now := time.Now()
	entities := []*store.Entity{
		{Name: "Volta", Domain: store.DomainWork},
		{Name: "Celine", Domain: store.DomainFamily},
	}

	top := TopRelevant(entities, "what's the status of volta?", 10, now)

	if len(top) != 1 {
		t.Fatalf("expected 1 relevant entity, got %d", len(top))
	}
	if top[0].Entity.Name != "Volta" {
		t.Errorf("expected Volta, got %q", top[0].Entity.Name)
	}
}

func TestTopRelevantOrderAndLimit(t *testing.T) {
	now := time.Now()
	entities := []*store.Entity{
		{Name: "Marathon", Domain: store.DomainSport, Description: "running goal"},
		{Name: "Volta", Domain: store.DomainWork, Description: "the big work project"},
		{Name: "Zuid Runners", Domain: store.DomainSport, Description: "running club"},
	}

	top := TopRelevant(entities, "volta running", 2, now)

	if len(top) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(top))
	}
	if top[0].Entity.Name != "Volta" {
		t.Errorf("expected Volta first, got %q", top[0].Entity.Name)
	}
	for i := 1; i < len(top); i++ {
		if top[i].Score > top[i-1].Score {
			t.Errorf("results not sorted: %f before %f", top[i-1].Score, top[i].Score)
		}
	}
}

func TestTopRelevantStableForTies(t *testing.T) {
	now := time.Now()
	entities := []*store.Entity{
		{Name: "First", Description: "about running"},
		{Name: "Second", Description: "about running"},
	}

	top := TopRelevant(entities, "running", 10, now)

	if len(top) != 2 {
		t.Fatalf("expected 2 results, got %d", len(top))
	}
	if top[0].Entity.Name != "First" || top[1].Entity.Name != "Second" {
		t.Errorf("tie order not stable: got %q, %q", top[0].Entity.Name, top[1].Entity.Name)
	}
}
